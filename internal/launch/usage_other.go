//go:build !unix

package launch

import "os"

func peakMemoryKB(*os.ProcessState) int64 {
	return -1
}
