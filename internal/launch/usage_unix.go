//go:build unix

package launch

import (
	"os"
	"runtime"
	"syscall"
)

func peakMemoryKB(ps *os.ProcessState) int64 {
	ru, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok || ru == nil {
		return -1
	}
	// darwin reports bytes, everyone else kilobytes
	if runtime.GOOS == "darwin" || runtime.GOOS == "ios" {
		return int64(ru.Maxrss) / 1024
	}
	return int64(ru.Maxrss)
}
