//go:build !windows

package execbackend

import "syscall"

var terminateSignal = syscall.SIGTERM
