package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/colthorp/cppc-go/internal/config"
	"github.com/colthorp/cppc-go/internal/core"
	"github.com/colthorp/cppc-go/internal/launch"
	"github.com/colthorp/cppc-go/internal/output"
	"github.com/colthorp/cppc-go/internal/toolchain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// launchPlan receives the hidden launch command's flags.
var launchPlan launch.Plan

func init() {
	// Add all subcommands
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(launchCmd)

	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd, cachePathCmd)
	fileCmd.AddCommand(fileShowCmd, fileSetCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)

	// Compile command flags
	compileCmd.Flags().Bool("force", false, "Recompile even if nothing changed")
	compileCmd.Flags().Bool("ask", false, "Ask before recompiling an unchanged file")

	// Run command flags
	runCmd.Flags().Bool("external", false, "Run in a new terminal window")
	runCmd.Flags().Bool("force", false, "Recompile even if nothing changed")

	// Status command flags
	statusCmd.Flags().IntP("parallel", "p", core.DefaultStatusWorkers, "Max files to check in parallel")

	launchPlan.RegisterFlags(launchCmd.Flags())
}

// compileCmd compiles a source file if needed
var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a source file if it changed since the last build",
	Args:  cobra.ExactArgs(1),
	RunE:  handleCompile,
}

// runCmd compiles if needed, then runs
var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Compile if needed, then run the program",
	Args:  cobra.ExactArgs(1),
	RunE:  handleRun,
}

// statusCmd reports recompile decisions without compiling
var statusCmd = &cobra.Command{
	Use:   "status [file...]",
	Short: "Show whether each file needs recompiling",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleStatus,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the compile cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every cache entry",
	Args:  cobra.NoArgs,
	RunE:  handleCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	Args:  cobra.NoArgs,
	RunE:  handleCacheClear,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache file location",
	Args:  cobra.NoArgs,
	RunE:  handleCachePath,
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Per-file run settings",
}

var fileShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the run settings of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  handleFileShow,
}

var fileSetCmd = &cobra.Command{
	Use:   "set [file] [key] [value]",
	Short: "Change one run setting of a source file",
	Args:  cobra.ExactArgs(3),
	RunE:  handleFileSet,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  handleConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one configuration value and save it",
	Args:  cobra.ExactArgs(2),
	RunE:  handleConfigSet,
}

// launchCmd runs a plan; external terminals invoke it
var launchCmd = &cobra.Command{
	Use:    "launch",
	Short:  "Run a compiled program with redirection",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   handleLaunch,
}

// exitCodeError carries a program's non-zero exit status out of run.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("program exited with code %d", e.code)
}

// exitCode maps an Execute error to a process exit status.
func exitCode(err error) int {
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

type compileReport struct {
	Outcome   string      `json:"outcome"`
	Source    string      `json:"source"`
	Artifact  string      `json:"artifact"`
	Reason    string      `json:"reason"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Error     interface{} `json:"error,omitempty"`
}

func newCompileReport(src string, res toolchain.Result, err error) compileReport {
	r := compileReport{
		Outcome:   res.Outcome.String(),
		Source:    src,
		Artifact:  res.Artifact,
		Reason:    string(res.Decision.Reason),
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if err != nil {
		r.Outcome = "failed"
		var cerr *toolchain.CompileError
		if errors.As(err, &cerr) {
			r.Error = cerr
		} else {
			r.Error = err.Error()
		}
	}
	return r
}

// confirmRebuild asks on the console whether to rebuild an unchanged file.
// Without an interactive stdin the answer is no.
func confirmRebuild(cmd *cobra.Command, src string) func() bool {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return func() bool { return false }
	}
	return func() bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s has not changed. Recompile anyway? [y/N] ", core.BaseName(src))
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func build(cmd *cobra.Command, a *app, src string, opts toolchain.BuildOptions) (toolchain.Result, error) {
	if !core.IsCppSource(src) {
		a.logger.Warn("File does not look like C/C++ source", zap.String("file", src))
	}
	opts.Options = a.cfg.EffectiveOptions()
	return a.builder.Build(cmd.Context(), src, opts)
}

func handleCompile(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	src := core.AbsPath(args[0])
	force, _ := cmd.Flags().GetBool("force")
	ask, _ := cmd.Flags().GetBool("ask")

	opts := toolchain.BuildOptions{Force: force}
	if ask {
		opts.Confirm = confirmRebuild(cmd, src)
	}

	res, err := build(cmd, a, src, opts)
	if raw {
		if perr := output.PrintJSON(cmd.OutOrStdout(), newCompileReport(src, res, err)); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch res.Outcome {
	case toolchain.Compiled:
		output.Success(out, "Compiled %s in %d ms", core.BaseName(src), res.Elapsed.Milliseconds())
	case toolchain.Skipped:
		output.Notice(out, "%s is up to date", core.BaseName(src))
	case toolchain.Cancelled:
		output.Notice(out, "Recompile of %s cancelled", core.BaseName(src))
	}
	return nil
}

func handleRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	src := core.AbsPath(args[0])
	force, _ := cmd.Flags().GetBool("force")
	external, _ := cmd.Flags().GetBool("external")

	res, err := build(cmd, a, src, toolchain.BuildOptions{Force: force})
	if err != nil {
		return err
	}
	if res.Outcome == toolchain.Compiled {
		core.ProgressPrint(fmt.Sprintf("Compiled %s in %d ms", core.BaseName(src), res.Elapsed.Milliseconds()), quiet)
	}

	plan := launch.NewPlan(res.Artifact, a.settings.Get(src), a.cfg.UseConsoleInfo)

	if external {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("opening external terminal: %w", err)
		}
		t := &launch.Terminal{
			GOOS:     runtime.GOOS,
			Template: a.cfg.TerminalCommand,
			Self:     self,
			Logger:   a.logger.Named("run"),
		}
		return t.Open(cmd.Context(), plan)
	}

	return runPlan(cmd, a, plan)
}

func runPlan(cmd *cobra.Command, a *app, plan launch.Plan) error {
	runner := launch.NewRunner(a.fs, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), a.logger.Named("run"))
	rep, err := runner.Run(cmd.Context(), plan)
	if err != nil {
		return err
	}
	if rep.ExitCode != 0 {
		return &exitCodeError{code: rep.ExitCode}
	}
	return nil
}

func handleLaunch(cmd *cobra.Command, args []string) error {
	if launchPlan.Executable == "" {
		return fmt.Errorf("--exe is required")
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return runPlan(cmd, a, launchPlan)
}

func handleStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	parallel, _ := cmd.Flags().GetInt("parallel")
	files := make([]string, len(args))
	for i, f := range args {
		files[i] = core.AbsPath(f)
	}

	decisions := a.decider.CheckAll(cmd.Context(), files, a.cfg.EffectiveOptions(), parallel)
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), decisions)
	}
	for _, d := range decisions {
		output.PrintDecision(cmd.OutOrStdout(), d)
	}
	return nil
}

func handleCacheShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	entries := a.store.Entries()
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), entries)
	}
	output.PrintEntries(cmd.OutOrStdout(), entries)
	return nil
}

func handleCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	output.Success(cmd.OutOrStdout(), "Cache cleared (%s)", a.store.Path())
	return nil
}

func handleCachePath(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintln(cmd.OutOrStdout(), a.store.Path())
	return nil
}

func handleFileShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	values := a.settings.Get(core.AbsPath(args[0])).Values()
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), values)
	}
	output.PrintValues(cmd.OutOrStdout(), values)
	return nil
}

func handleFileSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	src := core.AbsPath(args[0])
	if err := a.settings.Set(src, args[1], args[2]); err != nil {
		return err
	}
	if !a.settings.Persistent() {
		a.logger.Warn("files.persist is off; the setting lasts for this process only")
	}
	output.Success(cmd.OutOrStdout(), "%s: %s = %s", core.BaseName(src), args[1], args[2])
	return nil
}

func handleConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), cfg.Values())
	}
	output.PrintValues(cmd.OutOrStdout(), cfg.Values())
	return nil
}

func handleConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	output.Success(cmd.OutOrStdout(), "%s = %s (saved to %s)", args[0], args[1], cfg.ConfigPath)
	return nil
}
