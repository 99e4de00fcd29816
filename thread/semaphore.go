package thread

// Semaphore is a counting semaphore with the persistent signal
// property: a Post issued before the matching Wait is observed by that
// Wait, so wakeups are never lost.
//
// Posts are bounded: at most maxOutstandingPosts may be pending at
// once. The audio host posts once per worker per buffer and waits for
// every post before the next buffer, so the bound is never approached
// in practice. Exceeding it is a programming error and panics.
type Semaphore struct {
	ch chan struct{}
}

const maxOutstandingPosts = 64

// NewSemaphore creates a semaphore with the given initial count.
func NewSemaphore(initial int) *Semaphore {
	if initial < 0 || initial > maxOutstandingPosts {
		panic("thread: invalid initial semaphore count")
	}
	s := &Semaphore{ch: make(chan struct{}, maxOutstandingPosts)}
	for i := 0; i < initial; i++ {
		s.ch <- struct{}{}
	}
	return s
}

// Post increments the semaphore, waking up one waiter if any. Post
// never blocks.
func (s *Semaphore) Post() {
	select {
	case s.ch <- struct{}{}:
	default:
		panic("thread: semaphore post overflow")
	}
}

// Wait decrements the semaphore, blocking until a post is available.
func (s *Semaphore) Wait() {
	<-s.ch
}
