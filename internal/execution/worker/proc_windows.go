package worker

import "os/exec"

func initCmd(cmd *exec.Cmd) {
	// No-op on Windows.
}

func (p *proc) sendKillSignal() error {
	return p.cmd.Process.Kill()
}
