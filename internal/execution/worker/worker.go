package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// maxMessageSize bounds a single JSON line written by the subprocess.
const maxMessageSize = 1024 * 1024

// ProcessWorker runs a subprocess that reports to its parent by writing
// one JSON object per line to stdout.
type ProcessWorker struct {
	ctx    context.Context
	config StartConfig

	processLock sync.Mutex
	process     *proc
	destroyOnce sync.Once

	messages chan map[string]any
	exitChan chan ExitEvent

	log *zap.Logger
}

// NewProcessWorker creates a worker. The process is killed when ctx is
// cancelled.
func NewProcessWorker(ctx context.Context, config StartConfig, log *zap.Logger) *ProcessWorker {
	return &ProcessWorker{
		ctx:      ctx,
		config:   config,
		messages: make(chan map[string]any, 16),
		exitChan: make(chan ExitEvent, 1),
		log:      log.Named("worker"),
	}
}

// Start starts the worker process.
func (w *ProcessWorker) Start(ctx context.Context) error {
	w.log.With(
		zap.String("command", w.config.Cmd),
		zap.Strings("args", w.config.Args),
		zap.String("cwd", w.config.Cwd),
	).Debug("starting worker process")

	// synchronize access to the process
	w.processLock.Lock()
	defer w.processLock.Unlock()

	// return if the worker is already started
	if w.process != nil {
		return ErrWorkerAlreadyStarted
	}

	// exit early if the context is already cancelled
	if ctx.Err() != nil {
		return fmt.Errorf("failed to start process: %w", ctx.Err())
	}

	process, err := startProc(w.config, w.log)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	w.process = process

	var readers sync.WaitGroup
	readers.Add(2)

	go func() {
		defer readers.Done()
		w.readMessages(process)
	}()

	go func() {
		defer readers.Done()
		w.forwardStderr(process)
	}()

	done := make(chan struct{})

	// wait for the process to terminate, then report the exit
	// event and close the message channel
	go func() {
		defer close(done)

		// the pipes must be drained before waiting for the process
		readers.Wait()

		event := getExitEvent(process.wait())
		w.log.Info("worker process exited",
			zap.Intp("code", event.Code),
			zap.Intp("signal", event.Signal),
		)

		w.exitChan <- event
		close(w.exitChan)
		close(w.messages)
	}()

	// kill the process if the worker context is cancelled
	go func() {
		select {
		case <-done:
		case <-w.ctx.Done():
			w.destroy(process)
		}
	}()

	return nil
}

// Messages returns the objects decoded from the process stdout. The
// channel is closed after the process has exited.
func (w *ProcessWorker) Messages() <-chan map[string]any {
	return w.messages
}

// Destroy kills the worker process without waiting for it to exit.
func (w *ProcessWorker) Destroy() error {
	process := w.acquireProcess()
	if process == nil {
		return ErrWorkerNotStarted
	}

	w.destroy(process)

	return nil
}

// Wait blocks until the worker process exits or ctx is done.
func (w *ProcessWorker) Wait(ctx context.Context) (ExitEvent, error) {
	select {
	case <-ctx.Done():
		return ExitEvent{}, ctx.Err()
	case event, ok := <-w.exitChan:
		if !ok {
			return ExitEvent{}, ErrWorkerNotStarted
		}
		return event, nil
	}
}

func (w *ProcessWorker) Pid() int {
	if process := w.acquireProcess(); process != nil {
		return process.pid
	}

	return 0
}

func (w *ProcessWorker) destroy(process *proc) {
	w.destroyOnce.Do(process.kill)
}

func (w *ProcessWorker) readMessages(process *proc) {
	scanner := bufio.NewScanner(process.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg map[string]any
		if err := json.Unmarshal(line, &msg); err != nil {
			w.log.Warn("ignored undecodable message from worker", zap.Error(err))
			continue
		}

		w.messages <- msg
	}

	if err := scanner.Err(); err != nil {
		w.log.Error("failed to read from stdout", zap.Error(err))
	}
}

func (w *ProcessWorker) forwardStderr(process *proc) {
	scanner := bufio.NewScanner(process.stderr)
	for scanner.Scan() {
		w.log.Info("worker output", zap.String("stderr", scanner.Text()))
	}
}

// acquireProcess returns the worker process. The method is thread-safe.
func (w *ProcessWorker) acquireProcess() *proc {
	w.processLock.Lock()
	defer w.processLock.Unlock()

	return w.process
}

// MARK: - Helpers

func getExitEvent(err error) ExitEvent {
	var cell int
	var exitStatus *int
	var signo *int

	if err == nil {
		// the process exited successfully, set the exit code to 0
		exitStatus = &cell
	} else if exitError, ok := err.(*exec.ExitError); ok {
		// the process exited with an error
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			if code := status.ExitStatus(); code >= 0 {
				// the process exited with an exit code
				cell = code
				exitStatus = &cell
			} else {
				// the process was terminated by a signal
				cell = int(status.Signal())
				signo = &cell
			}
		}
	}

	if signo == nil && exitStatus == nil {
		// could not determine the exit status or signal,
		// set exit status to 1
		cell = 1
		exitStatus = &cell
	}

	return ExitEvent{
		Code:   exitStatus,
		Signal: signo,
	}
}
