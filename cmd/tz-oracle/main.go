// Command tz-oracle runs the timezone lookup regression and accuracy suite.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/lattice-substrate/tz-oracle/adapters/landmask"
	"github.com/lattice-substrate/tz-oracle/adapters/latlongtz"
	"github.com/lattice-substrate/tz-oracle/adapters/tzfref"
	"github.com/lattice-substrate/tz-oracle/config"
	"github.com/lattice-substrate/tz-oracle/dataset"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/oracle"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/report"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

const exitSuccess = 0

// environment holds the collaborators a run is wired to.
type environment struct {
	resolverName  string
	resolver      ports.Resolver
	referenceName string
	reference     func() (ports.Reference, error)
	inhabited     ports.Inhabited
}

func defaultEnvironment() environment {
	return environment{
		resolverName:  latlongtz.Name,
		resolver:      latlongtz.Resolve,
		referenceName: tzfref.Name,
		reference: func() (ports.Reference, error) {
			r, err := tzfref.New()
			if err != nil {
				return nil, err
			}
			return r.Lookup, nil
		},
		inhabited: landmask.Inhabited,
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, defaultEnvironment()))
}

func run(args []string, stdout, stderr io.Writer, env environment) int {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		if err := writeUsage(stdout); err != nil {
			return tzerr.InternalIO.ExitCode()
		}
		return exitSuccess
	}

	var err error
	switch args[0] {
	case "run":
		return cmdRun(args[1:], stdout, stderr, env)
	case "compare":
		err = cmdCompare(args[1:], stdout)
	case "cases":
		err = cmdCases(args[1:], stdout)
	case "verify-report":
		err = cmdVerifyReport(args[1:], stdout)
	default:
		if werr := writeUsage(stderr); werr != nil {
			return tzerr.InternalIO.ExitCode()
		}
		err = tzerr.Newf(tzerr.CLIUsage, "unknown subcommand %q", args[0])
	}
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	return exitSuccess
}

func cmdRun(args []string, stdout, stderr io.Writer, env environment) int {
	flags, err := parseKV(args)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	cfg, err := config.Load(requireFlag(flags, "--config"))
	if err != nil {
		return writeClassifiedError(stderr, tzerr.Wrap(tzerr.CLIUsage, "config", err))
	}
	if p := requireFlag(flags, "--report"); p != "" {
		cfg.Report.Path = p
	}
	if p := requireFlag(flags, "--metrics"); p != "" {
		cfg.Metrics.Path = p
	}
	if p := requireFlag(flags, "--cases"); p != "" {
		cfg.Dataset.Path = p
	}
	logger, err := newLogger(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	caps := cfg.Caps()
	var reference ports.Reference
	if caps.ReferenceResolverAvailable {
		if env.reference == nil {
			return writeClassifiedError(stderr, tzerr.New(tzerr.CLIUsage, "no reference geocoder is wired; set capabilities.reference=false"))
		}
		reference, err = env.reference()
		if err != nil {
			return writeClassifiedError(stderr, err)
		}
	}
	inhabited := env.inhabited
	if !caps.InhabitedOracleAvailable {
		inhabited = nil
	}

	var cases []dataset.TestCase
	if cfg.Dataset.Path != "" {
		cases, err = dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return writeClassifiedError(stderr, err)
		}
		logger.Info("custom regression table", "path", cfg.Dataset.Path, "cases", len(cases))
	}

	m := metrics.New()
	suite := &oracle.Suite{
		Resolver:     env.resolver,
		Reference:    reference,
		Inhabited:    inhabited,
		Capabilities: caps,
		Cases:        cases,
		Fuzz:         cfg.FuzzConfig(),
		Profile:      cfg.ProfileConfig(),
		Logger:       logger,
		Metrics:      m,
	}
	out, err := suite.Run()
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	fuzzCfg := cfg.FuzzConfig()
	referenceName := ""
	if caps.ReferenceResolverAvailable {
		referenceName = env.referenceName
	}
	doc, err := report.Build(out.Summary, report.BuildOptions{
		Resolver:     env.resolverName,
		Reference:    referenceName,
		Capabilities: caps,
		Instants:     out.Instants,
		FuzzConfig:   &fuzzCfg,
		Fuzz:         out.Fuzz,
		Profile:      out.Profile,
	})
	if err != nil {
		return writeClassifiedError(stderr, tzerr.Wrap(tzerr.InternalError, "build report", err))
	}
	if cfg.Report.Path != "" {
		if err := report.Write(cfg.Report.Path, doc); err != nil {
			return writeClassifiedError(stderr, err)
		}
	}
	if cfg.Metrics.Path != "" {
		if err := m.WriteTextfile(cfg.Metrics.Path); err != nil {
			return writeClassifiedError(stderr, tzerr.Wrap(tzerr.InternalIO, "write metrics", err))
		}
	}

	if err := writeSummary(stdout, doc); err != nil {
		return tzerr.InternalIO.ExitCode()
	}
	if failures := out.Summary.Failures(); len(failures) > 0 {
		return tzerr.ClassOf(failures[0].Err).ExitCode()
	}
	return exitSuccess
}

func writeSummary(w io.Writer, doc *report.Document) error {
	for _, s := range doc.Scenarios {
		if s.Status != "failed" {
			continue
		}
		if err := writef(w, "FAIL %s\n  %s: %s\n", s.Name, s.Class, s.Error); err != nil {
			return err
		}
	}
	if doc.Fuzz != nil {
		if err := writef(w, "fuzz: samples=%d inhabited=%d matches=%d mismatches=%d percent=%d\n",
			doc.Fuzz.Samples, doc.Fuzz.Inhabited, doc.Fuzz.Matches, doc.Fuzz.MismatchCount, doc.Fuzz.MismatchPercent); err != nil {
			return err
		}
	}
	for _, p := range doc.Profile {
		if err := writef(w, "profile: %s %s %.4f ms/call (%d calls, %d errors)\n",
			p.Target, p.Phase, p.MsPerCall, p.Calls, p.Errors); err != nil {
			return err
		}
	}
	if err := writef(w, "passed=%d failed=%d skipped=%d\n", doc.Passed, doc.Failed, doc.Skipped); err != nil {
		return err
	}
	return writef(w, "run %s digest %s\n", doc.RunID, doc.DigestSHA256)
}

func cmdCompare(args []string, stdout io.Writer) error {
	if len(args) != 2 || strings.HasPrefix(args[0], "-") || strings.HasPrefix(args[1], "-") {
		return tzerr.New(tzerr.CLIUsage, "compare requires exactly two zone identifiers")
	}
	a, b := args[0], args[1]
	cmp := zoneeq.NewDefault()
	for _, zone := range []string{a, b} {
		o, err := cmp.OffsetsOf(zone)
		if err != nil {
			return err
		}
		if err := writef(stdout, "%s standard=%+d daylight=%+d\n", zone, o.Standard, o.Daylight); err != nil {
			return err
		}
	}
	if err := cmp.Check(a, b); err != nil {
		return err
	}
	return writeLine(stdout, "equivalent")
}

func cmdCases(args []string, stdout io.Writer) error {
	flags, err := parseKV(args)
	if err != nil {
		return err
	}
	cases, err := dataset.Cases()
	if err != nil {
		return tzerr.Wrap(tzerr.InternalError, "load dataset", err)
	}
	st := dataset.Summarize(cases)
	if err := writef(stdout, "cases: %d\nstring-typed: %d\nwith cross-reference: %d\ndistinct zones: %d\n",
		st.Cases, st.StringTyped, st.WithCrossRef, st.DistinctZones); err != nil {
		return err
	}
	if requireFlag(flags, "--zones") == "true" {
		for _, z := range st.Zones {
			if err := writeLine(stdout, z); err != nil {
				return err
			}
		}
	}
	return nil
}

func cmdVerifyReport(args []string, stdout io.Writer) error {
	flags, err := parseKV(args)
	if err != nil {
		return err
	}
	path := requireFlag(flags, "--report")
	if path == "" {
		return tzerr.New(tzerr.CLIUsage, "verify-report requires --report")
	}
	doc, err := report.Load(path)
	if err != nil {
		return err
	}
	if err := report.Validate(doc); err != nil {
		return tzerr.Wrap(tzerr.AssertionMismatch, "invalid report", err)
	}
	return writef(stdout, "ok run=%s passed=%d failed=%d skipped=%d\n", doc.RunID, doc.Passed, doc.Failed, doc.Skipped)
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, tzerr.Wrap(tzerr.CLIUsage, "log.level", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, tzerr.Newf(tzerr.CLIUsage, "unknown log.format %q", format)
}

func parseKV(args []string) (map[string]string, error) {
	flags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, tzerr.Newf(tzerr.CLIUsage, "unexpected argument %q", arg)
		}
		if strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flags[parts[0]] = parts[1]
			continue
		}
		if i+1 >= len(args) {
			return nil, tzerr.Newf(tzerr.CLIUsage, "flag %s requires value", arg)
		}
		flags[arg] = args[i+1]
		i++
	}
	return flags, nil
}

func requireFlag(flags map[string]string, name string) string {
	return strings.TrimSpace(flags[name])
}

func writeClassifiedError(stderr io.Writer, err error) int {
	class := tzerr.ClassOf(err)
	msg := strings.TrimPrefix(err.Error(), "tzerr: ")
	if !strings.HasPrefix(msg, string(class)+": ") {
		msg = string(class) + ": " + msg
	}
	if werr := writef(stderr, "error: %s\n", msg); werr != nil {
		return tzerr.InternalIO.ExitCode()
	}
	return class.ExitCode()
}

func writeUsage(w io.Writer) error {
	lines := []string{
		"usage: tz-oracle <run|compare|cases|verify-report> [flags]",
		"  run [--config <path>] [--report <path>] [--metrics <path>] [--cases <path>]",
		"  compare <zone> <zone>",
		"  cases [--zones true]",
		"  verify-report --report <path>",
		"config keys may be overridden with TZORACLE_* env vars, e.g. TZORACLE_FUZZ_SAMPLES",
	}
	for _, l := range lines {
		if err := writeLine(w, l); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return tzerr.Wrap(tzerr.InternalIO, "write stream", err)
	}
	return nil
}
