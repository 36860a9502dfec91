//go:build !windows

package volume

import (
	"fmt"
	"runtime"
)

func newEndpoint() (Controller, error) {
	return nil, unavailable("windows audio endpoint", fmt.Errorf("not supported on %s", runtime.GOOS))
}
