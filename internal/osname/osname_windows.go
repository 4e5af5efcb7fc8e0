//go:build windows

package osname

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

func productCommand() (string, []string) {
	return "powershell", []string{
		"-NoProfile",
		"-Command",
		`(Get-ItemProperty 'HKLM:\SOFTWARE\Microsoft\Windows NT\CurrentVersion').ProductName`,
	}
}

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
}
