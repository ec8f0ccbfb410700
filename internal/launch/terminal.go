package launch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

const pausePrompt = "Press Enter to exit..."

// TerminalCommand builds the command that opens a new terminal window on
// goos, runs the plan through self's hidden launch helper, and waits for
// Enter before closing.
func TerminalCommand(goos string, p Plan, self string) (string, []string) {
	helper := append([]string{self}, p.HelperArgs()...)

	switch goos {
	case "windows":
		return "cmd", []string{"/d", "/s", "/c", winStart(p, helper)}
	case "darwin":
		script := fmt.Sprintf("cd %s; %s; echo; echo %s; read _", shQuote(p.Dir), shJoin(helper), shQuote(pausePrompt))
		apple := fmt.Sprintf(`tell application "Terminal" to do script "%s"`, appleEscape(script))
		return "osascript", []string{"-e", apple}
	}
	script := fmt.Sprintf("cd %s; %s; read -p %s", shQuote(p.Dir), shJoin(helper), shQuote(pausePrompt))
	return "gnome-terminal", []string{"--", "bash", "-c", script}
}

// WindowsCommandLine is the command line Open hands verbatim to cmd.exe on
// windows. cmd.exe has no escape for '"', so the line must not go through
// the argv quoting exec applies.
func WindowsCommandLine(p Plan, self string) string {
	helper := append([]string{self}, p.HelperArgs()...)
	return `cmd /d /s /c "` + winStart(p, helper) + `"`
}

func winStart(p Plan, helper []string) string {
	return fmt.Sprintf(`start %s cmd /c "cd /d %s & %s & echo. & pause"`,
		winQuote(p.Title()), winQuote(p.Dir), winJoin(helper))
}

// TemplateCommand expands a user terminal template. The template is split
// like a shell command line, then {dir}, {title} and {cmd} are replaced in
// each word; {cmd} is the POSIX-quoted helper command line.
func TemplateCommand(tmpl string, p Plan, self string) (string, []string, error) {
	words, err := shellwords.Parse(tmpl)
	if err != nil {
		return "", nil, fmt.Errorf("invalid terminal command: %w", err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("invalid terminal command: empty")
	}

	helper := append([]string{self}, p.HelperArgs()...)
	r := strings.NewReplacer("{dir}", p.Dir, "{title}", p.Title(), "{cmd}", shJoin(helper))
	for i, w := range words {
		words[i] = r.Replace(w)
	}
	return words[0], words[1:], nil
}

// Terminal opens plans in external terminal windows.
type Terminal struct {
	GOOS string
	// Template overrides the platform command when set.
	Template string
	// Self is the path of the cppc binary that hosts the launch helper.
	Self   string
	Logger *zap.Logger
}

// Command returns the command Open would execute for p.
func (t *Terminal) Command(p Plan) (string, []string, error) {
	if t.Template != "" {
		return TemplateCommand(t.Template, p, t.Self)
	}
	name, args := TerminalCommand(t.GOOS, p, t.Self)
	return name, args, nil
}

// Open starts the terminal and returns once the launcher command exits.
func (t *Terminal) Open(ctx context.Context, p Plan) error {
	name, args, err := t.Command(p)
	if err != nil {
		return fmt.Errorf("opening external terminal: %w", err)
	}
	if t.Logger != nil {
		t.Logger.Info("Opening external terminal", zap.String("command", name), zap.Strings("args", args))
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = p.Dir
	if t.Template == "" && t.GOOS == "windows" {
		setCmdLine(cmd, WindowsCommandLine(p, t.Self))
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("opening external terminal: %w", err)
		}
		return fmt.Errorf("opening external terminal: %s: %s", name, msg)
	}
	return nil
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func shJoin(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = shQuote(w)
	}
	return strings.Join(quoted, " ")
}

// winQuote wraps s in double quotes. Windows paths cannot contain '"', so
// any that appear are dropped.
func winQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}

func winJoin(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = winQuote(w)
	}
	return strings.Join(quoted, " ")
}

func appleEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
