//go:build !windows

package osname

import "os/exec"

func productCommand() (string, []string) {
	return "sh", []string{"-c", `grep ^PRETTY_NAME= /etc/os-release | cut -d= -f2 | tr -d '"'`}
}

func hideWindow(*exec.Cmd) {}
