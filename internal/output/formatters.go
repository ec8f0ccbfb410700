// Package output provides output formatting utilities for the cppc CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/colthorp/cppc-go/internal/cache"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	okColor    = color.New(color.FgGreen)
	staleColor = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	keyColor   = color.New(color.FgCyan)
	dimColor   = color.New(color.Faint)
)

// ConfigureColor applies a --color mode ("auto", "always" or "never").
// In auto mode color is on only when fd is a terminal.
func ConfigureColor(mode string, fd int) error {
	switch mode {
	case "", "auto":
		color.NoColor = !term.IsTerminal(fd)
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid color mode '%s' (expected auto, always or never)", mode)
	}
	return nil
}

// PrintJSON prints a single item as formatted JSON.
func PrintJSON(w io.Writer, item interface{}) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintDecision prints one status line for a recompile decision.
func PrintDecision(w io.Writer, d cache.Decision) {
	switch {
	case d.Reason == cache.ReasonUnreadable:
		errColor.Fprint(w, "unreadable")
	case d.Stale:
		staleColor.Fprint(w, "stale     ")
	default:
		okColor.Fprint(w, "up-to-date")
	}
	fmt.Fprintf(w, "  %s", d.Source)
	if d.Stale {
		dimColor.Fprintf(w, " (%s)", d.Reason)
	}
	fmt.Fprintln(w)
}

// Success prints a green status message.
func Success(w io.Writer, format string, args ...interface{}) {
	okColor.Fprintf(w, format+"\n", args...)
}

// Notice prints a yellow status message.
func Notice(w io.Writer, format string, args ...interface{}) {
	staleColor.Fprintf(w, format+"\n", args...)
}

// Failure prints a red status message.
func Failure(w io.Writer, format string, args ...interface{}) {
	errColor.Fprintf(w, format+"\n", args...)
}

// PrintValues prints key = value lines sorted by key.
func PrintValues(w io.Writer, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyColor.Fprint(w, k)
		fmt.Fprintf(w, " = %q\n", values[k])
	}
}

// PrintEntries prints the cache mapping, one "digest  path  options" line
// each, sorted by key. Keys that do not parse are printed as stored.
func PrintEntries(w io.Writer, entries map[string]cache.Digest) {
	if len(entries) == 0 {
		dimColor.Fprintln(w, "(cache is empty)")
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s  ", entries[k])
		key, ok := cache.ParseKey(k)
		if !ok {
			keyColor.Fprintln(w, k)
			continue
		}
		keyColor.Fprint(w, key.Path)
		if key.Options != "" {
			dimColor.Fprintf(w, "  %s", key.Options)
		}
		fmt.Fprintln(w)
	}
}
