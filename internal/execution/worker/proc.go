package worker

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

type proc struct {
	cmd    *exec.Cmd
	pid    int
	stdout io.ReadCloser
	stderr io.ReadCloser
	stdin  io.WriteCloser

	log *zap.Logger
}

func startProc(config StartConfig, log *zap.Logger) (*proc, error) {
	cmd := exec.Command(config.Cmd, config.Args...)

	if config.Env != nil {
		env := os.Environ()
		for k, v := range config.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if config.Cwd != "" {
		cmd.Dir = config.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	initCmd(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &proc{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		stdout: stdout,
		stderr: stderr,
		stdin:  stdin,
		log:    log.Named("proc").With(zap.Int("pid", cmd.Process.Pid)),
	}, nil
}

// kill closes stdin and sends SIGKILL to the process group. It does not
// wait for the process to exit.
func (p *proc) kill() {
	// close stdin before killing the process, to
	// avoid the process hanging on input
	if err := p.stdin.Close(); err != nil {
		p.log.Debug("close stdin failed", zap.Error(err))
	}

	p.log.Info("killing process")

	// best effort, ignore errors
	if err := p.sendKillSignal(); err != nil {
		p.log.Error("kill failed", zap.Error(err))
	}
}

// wait must only be called once stdout and stderr have been drained.
func (p *proc) wait() error {
	return p.cmd.Wait()
}
