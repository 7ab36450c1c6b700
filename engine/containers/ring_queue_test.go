package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("dequeue: got %d, %v; want %d", got, err, want)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueuePushOverwritesOldest(t *testing.T) {
	q := NewRingQueue[string](2)
	q.Push("a")
	q.Push("b")
	q.Push("c")

	var got []string
	q.Each(func(s string) { got = append(got, s) })
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected contents %v", got)
	}
	if head, _ := q.Peek(); head != "b" {
		t.Fatalf("peek: got %q", head)
	}
}
