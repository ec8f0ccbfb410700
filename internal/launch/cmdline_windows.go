//go:build windows

package launch

import (
	"os/exec"
	"syscall"
)

// setCmdLine makes cmd start with line as its raw command line.
func setCmdLine(cmd *exec.Cmd, line string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CmdLine = line
}
