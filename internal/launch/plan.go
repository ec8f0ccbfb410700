// Package launch runs compiled programs with the per-file redirection
// settings, either in the current terminal or in a new terminal window.
package launch

import (
	"path/filepath"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/colthorp/cppc-go/internal/settings"
	"github.com/spf13/pflag"
)

// Plan describes one program run.
type Plan struct {
	Executable string `json:"executable"`
	// Dir is the working directory. Relative redirect names resolve against it.
	Dir string `json:"dir"`

	Forward           bool   `json:"forward"`
	Reverse           bool   `json:"reverse"`
	InputFile         string `json:"input_file,omitempty"`
	OutputFile        string `json:"output_file,omitempty"`
	ReverseInputFile  string `json:"reverse_input_file,omitempty"`
	ReverseOutputFile string `json:"reverse_output_file,omitempty"`

	ConsoleInfo bool `json:"console_info"`
}

// NewPlan builds the plan for running artifact with the settings of its source.
func NewPlan(artifact string, fc settings.FileConfig, consoleInfo bool) Plan {
	artifact = core.AbsPath(artifact)
	return Plan{
		Executable:        artifact,
		Dir:               filepath.Dir(artifact),
		Forward:           fc.UseFileRedirect,
		Reverse:           fc.UseReverseRedirect,
		InputFile:         fc.InputFile,
		OutputFile:        fc.OutputFile,
		ReverseInputFile:  fc.ReverseInputFile,
		ReverseOutputFile: fc.ReverseOutputFile,
		ConsoleInfo:       consoleInfo,
	}
}

// Title is the window title used for external runs.
func (p Plan) Title() string {
	return core.BaseName(p.Executable)
}

func (p Plan) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// HelperArgs returns the arguments of the hidden "launch" command that
// replays this plan. RegisterFlags parses them back.
func (p Plan) HelperArgs() []string {
	args := []string{"launch", "--exe", p.Executable, "--dir", p.Dir}
	if p.Forward {
		args = append(args, "--forward", "--in", p.InputFile, "--out", p.OutputFile)
	}
	if p.Reverse {
		args = append(args, "--reverse", "--reverse-in", p.ReverseInputFile, "--reverse-out", p.ReverseOutputFile)
	}
	if p.ConsoleInfo {
		args = append(args, "--info")
	}
	return args
}

// RegisterFlags binds the helper flags to p.
func (p *Plan) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&p.Executable, "exe", "", "Executable to run")
	fs.StringVar(&p.Dir, "dir", "", "Working directory")
	fs.BoolVar(&p.Forward, "forward", false, "Redirect stdin/stdout to files")
	fs.BoolVar(&p.Reverse, "reverse", false, "Program reads and writes its own files")
	fs.StringVar(&p.InputFile, "in", "", "Input file for forward redirection")
	fs.StringVar(&p.OutputFile, "out", "", "Output file for forward redirection")
	fs.StringVar(&p.ReverseInputFile, "reverse-in", "", "File the program reads")
	fs.StringVar(&p.ReverseOutputFile, "reverse-out", "", "File the program writes")
	fs.BoolVar(&p.ConsoleInfo, "info", false, "Print run statistics after the program exits")
}
