package collection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/metrics"
)

const defaultTerminationTimeout = 10 * time.Second

var (
	ErrSupervisorClosed   = errors.New("supervisor is shut down")
	ErrTerminationTimeout = errors.New("subprocess did not terminate in time")
)

type Supervisor interface {
	// Start spawns the parcel collection subprocess, unless one is
	// already running, in which case it is a no-op.
	Start(ctx context.Context) error

	// Restart replaces the running subprocess with a new generation. It is
	// a no-op if nothing is running or a restart is already in progress.
	// Cancelling ctx stops the wait, not the restart.
	Restart(ctx context.Context) error

	// StreamStatus returns the connectivity statuses reported by the
	// subprocess. Every iteration is an independent subscription.
	StreamStatus(ctx context.Context) iter.Seq[Status]

	// Shutdown destroys the running subprocess and ends all subscriptions.
	Shutdown(ctx context.Context) error
}

// SpawnFunc starts a new parcel collection subprocess.
type SpawnFunc func(ctx context.Context) (Channel, error)

type Params struct {
	// Spawn is called whenever a new subprocess generation is needed.
	Spawn SpawnFunc

	// TerminationTimeout bounds how long a restart waits for the old
	// subprocess to go away. Defaults to 10s.
	TerminationTimeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Log is the logger to use for the supervisor
	Log *zap.Logger
}

type ProcessSupervisor struct {
	spawn              SpawnFunc
	terminationTimeout time.Duration

	mu         sync.Mutex
	current    *Handle
	generation uint64
	restarting bool
	closed     bool
	subs       map[*subscription]struct{}

	metrics *metrics.Metrics
	log     *zap.Logger
}

var _ Supervisor = (*ProcessSupervisor)(nil)

func New(params Params) *ProcessSupervisor {
	terminationTimeout := params.TerminationTimeout
	if terminationTimeout <= 0 {
		terminationTimeout = defaultTerminationTimeout
	}

	return &ProcessSupervisor{
		spawn:              params.Spawn,
		terminationTimeout: terminationTimeout,
		subs:               make(map[*subscription]struct{}),
		metrics:            params.Metrics,
		log:                params.Log.Named("supervisor"),
	}
}

func (s *ProcessSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked(ctx)
}

func (s *ProcessSupervisor) startLocked(ctx context.Context) error {
	if s.closed {
		return ErrSupervisorClosed
	}

	if s.current != nil {
		s.log.Warn("ignored attempt to start parcel collection subprocess a second time")
		return nil
	}

	channel, err := s.spawn(ctx)
	if err != nil {
		return fmt.Errorf("failed to spawn parcel collection subprocess: %w", err)
	}

	s.generation++
	handle := newHandle(s.generation, channel)
	s.current = handle

	go s.pump(handle)

	s.metrics.SetGeneration(handle.generation)
	s.log.Info("started parcel collection subprocess",
		zap.Uint64("generation", handle.generation),
	)

	return nil
}

func (s *ProcessSupervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		s.log.Debug("ignored restart: parcel collection subprocess is not running")
		return nil
	}
	if s.restarting {
		s.mu.Unlock()
		s.log.Debug("ignored restart: a restart is already in progress")
		return nil
	}
	s.restarting = true
	handle := s.current
	s.mu.Unlock()

	log := s.log.With(zap.Uint64("generation", handle.generation))
	log.Info("restarting parcel collection subprocess")

	if err := handle.destroy(); err != nil {
		log.Warn("failed to destroy parcel collection subprocess", zap.Error(err))
	}

	// once the subprocess has been killed the handover runs to completion,
	// even if the caller stops waiting for it
	done := make(chan error, 1)
	go func() {
		done <- s.completeRestart(context.WithoutCancel(ctx), handle)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for subprocess termination: %w", ctx.Err())
	}
}

func (s *ProcessSupervisor) completeRestart(ctx context.Context, handle *Handle) error {
	log := s.log.With(zap.Uint64("generation", handle.generation))

	timer := time.NewTimer(s.terminationTimeout)
	defer timer.Stop()

	select {
	case <-handle.Done():
	case <-timer.C:
		log.Error("parcel collection subprocess did not terminate",
			zap.Duration("timeout", s.terminationTimeout),
		)
		s.mu.Lock()
		s.restarting = false
		s.mu.Unlock()
		return ErrTerminationTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restarting = false
	if s.current == handle {
		s.current = nil
	}

	// the link is down while the new generation boots
	s.broadcastLocked(StatusDisconnected)

	if err := s.startLocked(ctx); err != nil {
		log.Error("failed to complete restart", zap.Error(err))
		return err
	}

	return nil
}

func (s *ProcessSupervisor) StreamStatus(ctx context.Context) iter.Seq[Status] {
	return func(yield func(Status) bool) {
		sub := s.subscribe()
		defer s.unsubscribe(sub)

		for {
			status, ok := sub.next(ctx)
			if !ok {
				return
			}
			if !yield(status) {
				return
			}
		}
	}
}

func (s *ProcessSupervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handle := s.current
	s.current = nil
	for sub := range s.subs {
		sub.close()
		delete(s.subs, sub)
	}
	s.metrics.SetSubscribers(0)
	s.mu.Unlock()

	if handle == nil {
		return nil
	}

	if err := handle.destroy(); err != nil {
		return fmt.Errorf("failed to destroy parcel collection subprocess: %w", err)
	}

	select {
	case <-handle.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the active handle, or nil if nothing is running.
func (s *ProcessSupervisor) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Subscribers returns the number of live status subscriptions.
func (s *ProcessSupervisor) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

// pump is the single reader of a handle's channel. It fans decoded
// statuses out to every subscription until the channel closes.
func (s *ProcessSupervisor) pump(handle *Handle) {
	log := s.log.With(zap.Uint64("generation", handle.generation))

	for msg := range handle.channel.Messages() {
		status, ok := DecodeStatus(msg)
		if !ok {
			log.Debug("ignored unrecognised message from subprocess")
			continue
		}

		s.mu.Lock()
		s.broadcastLocked(status)
		s.mu.Unlock()
	}

	handle.markTerminated()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != handle {
		return
	}

	s.current = nil
	if s.restarting {
		return
	}

	log.Warn("parcel collection subprocess exited")
	s.broadcastLocked(StatusDisconnected)
}

func (s *ProcessSupervisor) broadcastLocked(status Status) {
	s.metrics.SetConnected(status == StatusConnected)

	for sub := range s.subs {
		sub.push(status)
	}
}

func (s *ProcessSupervisor) subscribe() *subscription {
	sub := newSubscription()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		sub.close()
		return sub
	}

	s.subs[sub] = struct{}{}
	s.metrics.SetSubscribers(len(s.subs))

	return sub
}

func (s *ProcessSupervisor) unsubscribe(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, sub)
	s.metrics.SetSubscribers(len(s.subs))
}
