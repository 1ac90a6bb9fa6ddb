package collection

import (
	"sync/atomic"
)

// Channel is the communication channel to a running parcel collection
// subprocess. The supervisor is its only reader and the only party allowed
// to destroy it.
type Channel interface {
	// Messages returns the decoded messages sent by the subprocess. The
	// returned channel is closed once the subprocess is gone.
	Messages() <-chan map[string]any

	// Destroy terminates the subprocess abruptly.
	Destroy() error
}

// Handle wraps one generation of the parcel collection subprocess.
type Handle struct {
	generation uint64
	channel    Channel

	terminated atomic.Bool
	done       chan struct{}
}

func newHandle(generation uint64, channel Channel) *Handle {
	return &Handle{
		generation: generation,
		channel:    channel,
		done:       make(chan struct{}),
	}
}

func (h *Handle) Generation() uint64 {
	return h.generation
}

// Terminated reports whether the channel has been closed, either by the
// supervisor or because the subprocess went away on its own.
func (h *Handle) Terminated() bool {
	return h.terminated.Load()
}

// Done is closed once the handle has terminated and no further messages
// will be read from its channel.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) destroy() error {
	return h.channel.Destroy()
}

func (h *Handle) markTerminated() {
	if h.terminated.CompareAndSwap(false, true) {
		close(h.done)
	}
}
