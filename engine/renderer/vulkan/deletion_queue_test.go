package vulkan

import "testing"

type orderDevice struct {
	*fakeDevice
	order []string
}

func (d *orderDevice) DestroyPipeline(h Pipeline) {
	d.order = append(d.order, "pipeline")
	d.fakeDevice.DestroyPipeline(h)
}

func (d *orderDevice) DestroyPipelineLayout(h PipelineLayout) {
	d.order = append(d.order, "pipeline_layout")
	d.fakeDevice.DestroyPipelineLayout(h)
}

func TestDeletionQueueFlushesInReverse(t *testing.T) {
	dev := &orderDevice{fakeDevice: newFakeDevice(&fakeWindow{})}

	var q DeletionQueue
	for i := 0; i < 2; i++ {
		layout, _ := dev.CreatePipelineLayout(nil, nil)
		pipeline, _ := dev.CreateComputePipeline(layout, ShaderModule(dev.create("shader_module")))
		q.Push(DeleteAction{Kind: DeletePipelineLayout, Handle: uint64(layout)})
		q.Push(DeleteAction{Kind: DeletePipeline, Handle: uint64(pipeline)})
	}
	if q.Len() != 4 {
		t.Fatalf("Len() = %d", q.Len())
	}

	q.Flush(dev)

	want := []string{"pipeline", "pipeline_layout", "pipeline", "pipeline_layout"}
	if len(dev.order) != len(want) {
		t.Fatalf("destroy order = %v, want %v", dev.order, want)
	}
	for i := range want {
		if dev.order[i] != want[i] {
			t.Errorf("destroy order = %v, want %v", dev.order, want)
			break
		}
	}
	for h, kind := range dev.live {
		if kind == "pipeline" || kind == "pipeline_layout" {
			t.Errorf("%s %d still alive after flush", kind, h)
		}
	}
	if q.Len() != 0 {
		t.Error("queue not empty after flush")
	}
	// flushing an empty queue is a no-op
	q.Flush(dev)
	dev.checkErrors(t)
}

func TestDeleteKindString(t *testing.T) {
	if DeletePipelineLayout.String() != "pipeline_layout" {
		t.Errorf("got %s", DeletePipelineLayout)
	}
	if DeleteKind(200).String() != "delete_kind(200)" {
		t.Errorf("got %s", DeleteKind(200))
	}
}
