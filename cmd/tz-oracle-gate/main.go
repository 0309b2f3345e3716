// Command tz-oracle-gate runs the repository's verification gates in order.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

type gateStep struct {
	label string
	args  []string
	short bool
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var gateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}, short: true},
	{label: "unit tests", args: []string{"test", "./...", "-short", "-count=1", "-timeout=10m"}, short: true},
	{label: "race tests", args: []string{"test", "./...", "-short", "-race", "-count=1", "-timeout=15m"}},
	{label: "adapter regression", args: []string{"test", "./adapters/...", "-count=1", "-timeout=10m", "-v"}},
	{label: "cli suite", args: []string{"test", "./cmd/tz-oracle", "-count=1", "-timeout=10m"}},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-timeout=10m", "-v"}},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

//nolint:gocyclo,cyclop // gate dispatch stays linear.
func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	quick := false
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			if err := writeUsage(stdout); err != nil {
				return 1
			}
			return 0
		case "--quick":
			quick = true
		default:
			if err := writef(stderr, "error: unknown argument %q\n", arg); err != nil {
				return 1
			}
			if err := writeUsage(stderr); err != nil {
				return 1
			}
			return 2
		}
	}

	steps := selectSteps(quick)
	ctx := context.Background()
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			if writeErr := writef(stderr, "gate failed: %s: %v\n", step.label, err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func selectSteps(quick bool) []gateStep {
	if !quick {
		return gateSteps
	}
	var out []gateStep
	for _, s := range gateSteps {
		if s.short {
			out = append(out, s)
		}
	}
	return out
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writeUsage(w io.Writer) error {
	if err := writeLine(w, "usage: go run ./cmd/tz-oracle-gate [--quick] [--help]"); err != nil {
		return err
	}
	if err := writeLine(w, "runs: vet, tests, race, adapter regression, cli suite, conformance"); err != nil {
		return err
	}
	return writeLine(w, "--quick runs only vet and short unit tests (skips the tzf finder load)")
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
