package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/sambeau/styx/config"
	"github.com/sambeau/styx/pkg/styx/errors"
	"github.com/sambeau/styx/pkg/styx/export"
	"github.com/sambeau/styx/pkg/styx/sexp"
	"github.com/sambeau/styx/pkg/styx/source"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// Exit codes
const (
	exitSyntax = 1 // a document failed to parse
	exitIO     = 2 // a file could not be read or decoded
)

// exitError carries a process exit code. Its message has already been
// printed when err is nil.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		var ee *exitError
		if stderrors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("styx", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "styx version %s\n", Version)
		return nil
	}

	if flags.NArg() == 0 {
		printUsage(stderr)
		return fmt.Errorf("no command given")
	}

	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "styx version %s\n", Version)
		return nil
	}
	if cmd == "help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	switch cmd {
	case "check":
		return checkCommand(cfg, cmdArgs, stdout, stderr)
	case "tree":
		return treeCommand(cfg, cmdArgs, stdout, stderr)
	case "watch":
		ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return watchCommand(ctx, cfg, cmdArgs, stdout, stderr)
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func loadOptions(cfg *config.Config) source.Options {
	return source.Options{MaxDepth: cfg.Parse.MaxDepth}
}

// checkCommand parses each file and reports syntax errors
func checkCommand(cfg *config.Config, files []string, stdout, stderr io.Writer) error {
	if len(files) == 0 {
		return fmt.Errorf("check: no files given")
	}

	hasErrors := false
	for _, filename := range files {
		f, err := source.Load(filename, loadOptions(cfg))
		if err == nil {
			continue
		}
		if !source.IsSyntaxError(err) {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			return &exitError{code: exitIO}
		}
		printStructuredError(stderr, f.Source, err)
		hasErrors = true
	}

	if hasErrors {
		return &exitError{code: exitSyntax}
	}
	fmt.Fprintf(stdout, "ok: %d file(s)\n", len(files))
	return nil
}

// treeCommand prints the parsed document
func treeCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("tree", flag.ContinueOnError)
	flags.SetOutput(stderr)
	format := flags.String("format", cfg.Output.Format, "Output format: sexp, json, or yaml")
	indent := flags.Int("indent", cfg.Output.Indent, "Spaces per level for json and yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("tree: expected exactly one file")
	}

	cfg.Output.Format = *format
	cfg.Output.Indent = *indent
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	filename := flags.Arg(0)
	f, err := source.Load(filename, loadOptions(cfg))
	if err != nil {
		if !source.IsSyntaxError(err) {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			return &exitError{code: exitIO}
		}
		if cfg.Output.Format == config.FormatSexp {
			fmt.Fprintln(stdout, sexp.Error(err))
		} else {
			printStructuredError(stderr, f.Source, err)
		}
		return &exitError{code: exitSyntax}
	}

	switch cfg.Output.Format {
	case config.FormatJSON:
		out, err := export.JSON(f.Document, cfg.Output.Indent)
		if err != nil {
			return err
		}
		if cfg.Output.Indent == 0 {
			out = append(out, '\n')
		}
		_, err = stdout.Write(out)
		return err
	case config.FormatYAML:
		out, err := export.YAML(f.Document, cfg.Output.Indent)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	default:
		fmt.Fprintln(stdout, sexp.Document(f.Document))
		return nil
	}
}

// watchCommand re-parses a file whenever it changes until ctx is done
func watchCommand(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("watch: expected exactly one file")
	}
	filename := args[0]

	logger := source.WriterLogger(stderr)
	if cfg.Watch.LogFile != "" {
		lf, err := os.OpenFile(cfg.Watch.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening watch log: %w", err)
		}
		defer lf.Close()
		logger = source.WriterLogger(lf)
	}

	var mu sync.Mutex
	onChange := func(f *source.File, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			fmt.Fprintf(stdout, "ok: %s (%d entries)\n", f.Path, len(f.Document.Entries))
		case f != nil:
			printStructuredError(stderr, f.Source, err)
		default:
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
		}
	}

	w, err := source.NewWatcher(filename, source.WatchConfig{
		Options:  loadOptions(cfg),
		Debounce: cfg.Watch.Debounce,
		Logger:   logger,
	}, onChange)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// printStructuredError prints a parse error with source context
func printStructuredError(w io.Writer, src string, err error) {
	var se *errors.StyxError
	if !stderrors.As(err, &se) {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, se.PrettyString())
	printSourceContext(w, strings.Split(src, "\n"), se.Line, se.Column)
}

// printSourceContext prints the source line and error pointer
func printSourceContext(w io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := strings.TrimSuffix(lines[lineNum-1], "\r")
	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	trimCount := len([]rune(sourceLine)) - len([]rune(trimmedLine))

	fmt.Fprintf(w, "    %s\n", trimmedLine)

	if colNum > 0 {
		adjustedCol := max(colNum-1-trimCount, 0)
		fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", adjustedCol))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `styx - Parse and inspect Styx documents

Usage:
  styx [options] <command> [args]

Commands:
  check FILE...                     Check files for syntax errors
  tree [--format F] [--indent N] FILE
                                    Print the document tree (sexp, json, yaml)
  watch FILE                        Re-parse FILE whenever it changes
  version                           Show version

Options:
  --config PATH    Path to config file (default: auto-detect)
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. STYX_CONFIG environment variable
  3. ./styx.yaml

Exit Status:
  0  success
  1  syntax error
  2  file could not be read

`)
}
