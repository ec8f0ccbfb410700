package launch

import (
	"fmt"
	"io"
	"os"
	"time"
)

const reportRule = "-----------------------------------------------"

// Report holds the statistics of a finished run.
type Report struct {
	Wall     time.Duration `json:"wall"`
	Kernel   time.Duration `json:"kernel"`
	User     time.Duration `json:"user"`
	ExitCode int           `json:"exit_code"`
	// PeakMemoryKB is -1 where the platform does not report it.
	PeakMemoryKB int64 `json:"peak_memory_kb"`
}

func newReport(ps *os.ProcessState, wall time.Duration) *Report {
	return &Report{
		Wall:         wall,
		Kernel:       ps.SystemTime(),
		User:         ps.UserTime(),
		ExitCode:     ps.ExitCode(),
		PeakMemoryKB: peakMemoryKB(ps),
	}
}

// CPU is kernel plus user time.
func (r *Report) CPU() time.Duration {
	return r.Kernel + r.User
}

// Print writes the run-info block.
func (r *Report) Print(w io.Writer) error {
	mem := "unavailable"
	if r.PeakMemoryKB >= 0 {
		mem = fmt.Sprintf("%d KB", r.PeakMemoryKB)
	}
	us := r.Wall.Microseconds()
	_, err := fmt.Fprintf(w,
		"\n%s\nElapsed time:    %d.%03d ms\nPeak memory:     %s\nKernel CPU time: %.3f s\nUser CPU time:   %.3f s\nTotal CPU time:  %.3f s\nExit code:       %d (0x%X)\n%s\n",
		reportRule,
		us/1000, us%1000,
		mem,
		r.Kernel.Seconds(),
		r.User.Seconds(),
		r.CPU().Seconds(),
		r.ExitCode, uint32(r.ExitCode),
		reportRule,
	)
	return err
}
