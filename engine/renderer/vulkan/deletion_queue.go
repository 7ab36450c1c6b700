package vulkan

import "fmt"

type DeleteKind uint8

const (
	DeletePipeline DeleteKind = iota
	DeletePipelineLayout
)

func (k DeleteKind) String() string {
	switch k {
	case DeletePipeline:
		return "pipeline"
	case DeletePipelineLayout:
		return "pipeline_layout"
	}
	return fmt.Sprintf("delete_kind(%d)", uint8(k))
}

type DeleteAction struct {
	Kind   DeleteKind
	Handle uint64
}

// DeletionQueue holds pipelines retired by a shader reload until no frame in
// flight can use them. Flush destroys them in reverse order of registration.
type DeletionQueue struct {
	actions []DeleteAction
}

func (q *DeletionQueue) Push(action DeleteAction) {
	q.actions = append(q.actions, action)
}

func (q *DeletionQueue) Len() int {
	return len(q.actions)
}

func (q *DeletionQueue) Flush(dev Device) {
	for i := len(q.actions) - 1; i >= 0; i-- {
		a := q.actions[i]
		switch a.Kind {
		case DeletePipeline:
			dev.DestroyPipeline(Pipeline(a.Handle))
		case DeletePipelineLayout:
			dev.DestroyPipelineLayout(PipelineLayout(a.Handle))
		}
	}
	q.actions = q.actions[:0]
}
