package thread

import (
	"sync/atomic"
	"testing"
	"time"
)

// A post issued before the matching wait must be observed by that wait.
func TestSemaphorePersistentSignal(t *testing.T) {
	s := NewSemaphore(0)
	s.Post()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not observe an earlier post")
	}
}

func TestSemaphoreInitialCount(t *testing.T) {
	s := NewSemaphore(3)
	for i := 0; i < 3; i++ {
		s.Wait()
	}
	// A fourth wait would block: verify with a probe goroutine.
	var woke atomic.Bool
	go func() {
		s.Wait()
		woke.Store(true)
	}()
	time.Sleep(10 * time.Millisecond)
	if woke.Load() {
		t.Fatal("wait returned without a post")
	}
	s.Post()
	for i := 0; i < 100 && !woke.Load(); i++ {
		time.Sleep(time.Millisecond)
	}
	if !woke.Load() {
		t.Fatal("post did not wake the waiter")
	}
}

func TestSemaphoreFanOutFanIn(t *testing.T) {
	start := NewSemaphore(0)
	done := NewSemaphore(0)
	const numWorkers = 4

	var running atomic.Int32
	for i := 0; i < numWorkers; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				start.Wait()
				running.Add(1)
				done.Post()
			}
		}()
	}

	for buffer := 0; buffer < 100; buffer++ {
		for i := 0; i < numWorkers; i++ {
			start.Post()
		}
		for i := 0; i < numWorkers; i++ {
			done.Wait()
		}
		if got := running.Load(); got != int32((buffer+1)*numWorkers) {
			t.Fatalf("buffer %d: %d iterations ran, want %d", buffer, got, (buffer+1)*numWorkers)
		}
	}
}

func TestSemaphorePostOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	s := NewSemaphore(0)
	for i := 0; i <= maxOutstandingPosts; i++ {
		s.Post()
	}
}
