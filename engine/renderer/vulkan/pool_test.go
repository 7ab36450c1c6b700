package vulkan

import (
	"sync"
	"testing"
)

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	var wg sync.WaitGroup
	inside, peak := 0, 0
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(MemoryManagement, func() error {
				mu.Lock()
				inside++
				if inside > peak {
					peak = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("peak concurrency inside one group = %d, want 1", peak)
	}
}

func TestLockPoolGroupsAreIndependent(t *testing.T) {
	pool := NewVulkanLockPool()

	err := pool.SafeCall(PipelineManagement, func() error {
		// a different group must not deadlock while the first is held
		return pool.SafeCall(SwapchainManagement, func() error { return nil })
	})
	if err != nil {
		t.Fatalf("nested call in another group: %v", err)
	}
}

func TestSafeQueueCall(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(2)
	pool.SetQueueFamily(2)

	called := false
	if err := pool.SafeQueueCall(2, func() error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("fn was not run")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an unregistered queue family")
		}
	}()
	_ = pool.SafeQueueCall(7, func() error { return nil })
}
