package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"fail-lang/internal/diag"
	"fail-lang/internal/token"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// palette applies colors only when enabled in the configuration.
type palette struct {
	enabled bool
}

func (p palette) paint(color, s string) string {
	if !p.enabled {
		return s
	}
	return color + s + colorReset
}

// ---- multi-line input ----

// inputBuffer joins lines until braces balance.
type inputBuffer struct {
	text  strings.Builder
	depth int
}

// Add appends a line. It returns the accumulated source and true once the
// input is complete.
func (b *inputBuffer) Add(line string) (string, bool) {
	b.depth += strings.Count(line, "{") - strings.Count(line, "}")
	b.text.WriteString(line)
	b.text.WriteString("\n")
	if b.depth > 0 {
		return "", false
	}
	source := b.text.String()
	b.Reset()
	return source, true
}

// Pending reports whether a multi-line input is in progress.
func (b *inputBuffer) Pending() bool { return b.depth > 0 }

// Reset drops any partial input.
func (b *inputBuffer) Reset() {
	b.text.Reset()
	b.depth = 0
}

// ---- completion ----

// nameCompleter completes keywords and the names currently bound in the
// session's global environment.
type nameCompleter struct {
	names func() []string
}

// Do implements readline.AutoCompleter.
func (nc *nameCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := token.Keywords()
	if nc.names != nil {
		candidates = append(candidates, nc.names()...)
	}

	var out [][]rune
	seen := make(map[string]bool)
	for _, cand := range candidates {
		if seen[cand] || cand == prefix || !strings.HasPrefix(cand, prefix) {
			continue
		}
		seen[cand] = true
		out = append(out, []rune(cand[len(prefix):]))
	}
	return out, pos - start
}

func isWordRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// ---- repl command ----

func (c *cli) cmdRepl(opts *options) int {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return exitUsage
	}
	historyFile, err := cfg.HistoryPath()
	if err != nil {
		fmt.Fprintf(c.stderr, "warning: history disabled: %v\n", err)
	}

	pal := palette{enabled: cfg.Diagnostics.Color}
	prompt := pal.paint(colorGreen, cfg.REPL.Prompt)
	continuation := pal.paint(colorGray, "...   ")
	completer := &nameCompleter{}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            c.stdout,
		Stderr:            c.stderr,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "readline init failed: %v\n", err)
		return exitUsage
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s %s\n\n",
		pal.paint(colorBold+colorCyan, "fail REPL"), pal.paint(colorGray, "(type 'exit' or Ctrl+D to quit)"))

	session := c.newSession(rl.Stdout(), cfg, opts)
	completer.names = session.Names

	var input inputBuffer
	for {
		if input.Pending() {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if input.Pending() {
					input.Reset()
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s\n", pal.paint(colorGray, "(use 'exit' or Ctrl+D to quit)"))
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if !input.Pending() && strings.TrimSpace(line) == "exit" {
			break
		}

		source, complete := input.Add(line)
		if !complete || strings.TrimSpace(source) == "" {
			continue
		}

		res := session.Eval(source)
		printDiagsColored(rl.Stderr(), res.Diagnostics, pal)
	}
	return exitOK
}

// printDiagsColored prints errors in red and warnings in yellow.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic, pal palette) {
	for _, d := range diags {
		color := colorRed
		if d.Severity == diag.Warning {
			color = colorYellow
		}
		fmt.Fprintln(w, pal.paint(color, d.String()))
	}
}
