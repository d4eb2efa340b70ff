//go:build windows

package execbackend

import "os"

var terminateSignal = os.Kill
