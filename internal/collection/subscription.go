package collection

import (
	"context"
	"sync"
)

// subscription is a per-consumer queue of statuses. The queue is unbounded
// so a slow consumer never holds up the broadcast to other consumers.
type subscription struct {
	mu     sync.Mutex
	queue  []Status
	closed bool

	notify chan struct{}
}

func newSubscription() *subscription {
	return &subscription{
		notify: make(chan struct{}, 1),
	}
}

func (s *subscription) push(status Status) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, status)
	s.mu.Unlock()

	s.signal()
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
}

// next blocks until a status is queued, the subscription is closed or the
// context is done. Queued statuses are drained before a close is reported.
func (s *subscription) next(ctx context.Context) (Status, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			status := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return status, true
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return "", false
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-s.notify:
		}
	}
}

func (s *subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
