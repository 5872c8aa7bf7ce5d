//go:build !linux

package serialport

import (
	"fmt"
	"os"
)

// Open is unsupported outside Linux; raw termios control requires
// platform-specific ioctls this module doesn't implement.
func Open(path string, baud int) (*os.File, error) {
	return nil, fmt.Errorf("serialport: raw serial mode not supported on this platform")
}
