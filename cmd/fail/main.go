// Command fail is the CLI entry point for the fail language.
//
// Usage:
//
//	fail tokens <file> [--json]        Print tokens
//	fail parse  <file>                 Print AST as JSON
//	fail run    <file> [--json]        Run a source file
//	fail repl                          Start interactive REPL
//
// run and repl also accept --config <file> and --verbose.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"fail-lang/internal/ast"
	"fail-lang/internal/config"
	"fail-lang/internal/diag"
	"fail-lang/internal/driver"
	"fail-lang/internal/lexer"
	"fail-lang/internal/parser"
)

// Static errors share the exit code of driver.OutcomeStaticError.
const (
	exitOK     = 0
	exitUsage  = 1
	exitStatic = 65
)

// options holds the flags shared by every subcommand.
type options struct {
	json       bool
	verbose    bool
	configPath string
}

// cli carries the output streams so commands can be exercised in tests.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		c.usage()
		return exitUsage
	}

	command := args[0]
	opts, positional, err := parseFlags(command, args[1:])
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		c.usage()
		return exitUsage
	}

	switch command {
	case "tokens", "parse", "run":
		if len(positional) < 1 {
			fmt.Fprintln(c.stderr, "error: missing file argument")
			return exitUsage
		}
		source, err := os.ReadFile(positional[0])
		if err != nil {
			fmt.Fprintf(c.stderr, "error: cannot read file %s: %v\n", positional[0], err)
			return exitUsage
		}
		switch command {
		case "tokens":
			return c.cmdTokens(string(source), positional[0], opts)
		case "parse":
			return c.cmdParse(string(source), positional[0])
		default:
			return c.cmdRun(string(source), positional[0], opts)
		}
	case "repl":
		return c.cmdRepl(opts)
	default:
		fmt.Fprintf(c.stderr, "error: unknown command '%s'\n", command)
		c.usage()
		return exitUsage
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  fail tokens <file> [--json]   Tokenize and print tokens")
	fmt.Fprintln(c.stderr, "  fail parse  <file>            Parse and print AST (JSON)")
	fmt.Fprintln(c.stderr, "  fail run    <file> [--json]   Run a source file")
	fmt.Fprintln(c.stderr, "  fail repl                     Start interactive REPL")
	fmt.Fprintln(c.stderr, "Flags for run and repl:")
	fmt.Fprintln(c.stderr, "  --config <file>   configuration file (default ./"+config.FileName+" if present)")
	fmt.Fprintln(c.stderr, "  --verbose         trace pipeline phases to stderr")
}

// parseFlags accepts flags before and after positional arguments, so both
// `fail run --json f.fail` and `fail run f.fail --json` work.
func parseFlags(command string, args []string) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.json, "json", false, "print JSON")
	fs.BoolVar(&opts.verbose, "verbose", false, "trace pipeline phases")
	fs.StringVar(&opts.configPath, "config", "", "configuration file")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	return opts, positional, nil
}

func (c *cli) loadConfig(opts *options) (*config.Config, error) {
	if opts.configPath != "" {
		return config.Load(opts.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: working directory: %w", err)
	}
	return config.Discover(wd)
}

func (c *cli) newSession(out io.Writer, cfg *config.Config, opts *options) *driver.Session {
	sessionOpts := []driver.Option{driver.WithConfig(cfg)}
	if opts.verbose {
		sessionOpts = append(sessionOpts, driver.WithLogger(log.New(c.stderr, "fail: ", log.Lmicroseconds)))
	}
	return driver.NewSession(out, sessionOpts...)
}

// ---- tokens command ----

func (c *cli) cmdTokens(source, filename string, opts *options) int {
	tokens, diags := lexer.New(source, filename).Tokenize()

	if opts.json {
		c.printTokensJSON(tokens, diags)
	} else {
		c.printTokensText(tokens, diags)
	}

	if hasErrors(diags) {
		return exitStatic
	}
	return exitOK
}

// ---- parse command ----

func (c *cli) cmdParse(source, filename string) int {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	file, parseDiags := parser.New(tokens).ParseFile()

	allDiags := append(lexDiags, parseDiags...)

	output := map[string]interface{}{
		"ast":         ast.NodeToMap(file),
		"diagnostics": diagsToSlice(allDiags),
	}
	if err := c.printJSON(c.stdout, output); err != nil {
		return exitUsage
	}

	if hasErrors(allDiags) {
		return exitStatic
	}
	return exitOK
}

// ---- run command ----

func (c *cli) cmdRun(source, filename string, opts *options) int {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return exitUsage
	}

	res := c.newSession(c.stdout, cfg, opts).Run(source, filename)
	if opts.json {
		output := map[string]interface{}{
			"outcome":     res.Outcome.String(),
			"diagnostics": diagsToSlice(res.Diagnostics),
		}
		if err := c.printJSON(c.stderr, output); err != nil {
			return exitUsage
		}
	} else {
		c.printDiagsText(res.Diagnostics)
	}
	return res.Outcome.ExitCode()
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}
