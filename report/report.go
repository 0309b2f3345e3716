// Package report is the machine-consumed output artifact of an oracle run.
//
// A Document records configuration, every scenario outcome, the fuzz summary
// and profiler phases. Its digest is the SHA-256 of the RFC 8785 canonical
// form of the document with the digest field cleared, so two runs with equal
// outcomes and metadata produce equal digests regardless of field order or
// whitespace.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/uuid"

	"github.com/lattice-substrate/tz-oracle/fuzz"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/profiler"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

const SchemaVersion = "tz-oracle.report.v1"

// Document is one oracle run.
type Document struct {
	SchemaVersion     string                 `json:"schema_version"`
	RunID             string                 `json:"run_id"`
	GeneratedAtUTC    string                 `json:"generated_at_utc"`
	Resolver          string                 `json:"resolver"`
	Reference         string                 `json:"reference"`
	Capabilities      Capabilities           `json:"capabilities"`
	ReferenceInstants Instants               `json:"reference_instants"`
	FuzzConfig        *FuzzConfig            `json:"fuzz_config,omitempty"`
	Fuzz              *FuzzSummary           `json:"fuzz,omitempty"`
	Profile           []profiler.Measurement `json:"profile"`
	Scenarios         []ScenarioRecord       `json:"scenarios"`
	Passed            int                    `json:"passed"`
	Failed            int                    `json:"failed"`
	Skipped           int                    `json:"skipped"`
	DigestSHA256      string                 `json:"digest_sha256"`
}

// Capabilities mirrors ports.Capabilities.
type Capabilities struct {
	Reference bool `json:"reference"`
	Inhabited bool `json:"inhabited"`
}

// Instants records the comparator's reference pair.
type Instants struct {
	Standard string `json:"standard"`
	Daylight string `json:"daylight"`
}

// FuzzConfig echoes the fuzz configuration.
type FuzzConfig struct {
	Samples          int    `json:"samples"`
	ThresholdPercent int    `json:"threshold_percent"`
	MismatchLimit    int    `json:"mismatch_limit"`
	Seed             uint64 `json:"seed"`
}

// FuzzSummary is the fuzz result with a bounded mismatch sample.
type FuzzSummary struct {
	fuzz.Result
	FirstMismatches []fuzz.MismatchRecord `json:"first_mismatches"`
}

// ScenarioRecord is one scenario outcome.
type ScenarioRecord struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Class      string `json:"class,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationNS int64  `json:"duration_ns"`
}

// BuildOptions carries the run metadata that is not part of the summary.
type BuildOptions struct {
	RunID        string
	Resolver     string
	Reference    string
	Capabilities ports.Capabilities
	Instants     zoneeq.ReferenceInstants
	FuzzConfig   *fuzz.Config
	Fuzz         *fuzz.Result
	Profile      []profiler.Measurement
	Now          func() time.Time
}

// Build assembles and seals a Document.
func Build(summary scenario.Summary, opts BuildOptions) (*Document, error) {
	now := opts.Now
	if now == nil {
		now = wallClockNow
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	d := &Document{
		SchemaVersion:  SchemaVersion,
		RunID:          runID,
		GeneratedAtUTC: now().UTC().Format(time.RFC3339Nano),
		Resolver:       opts.Resolver,
		Reference:      opts.Reference,
		Capabilities: Capabilities{
			Reference: opts.Capabilities.ReferenceResolverAvailable,
			Inhabited: opts.Capabilities.InhabitedOracleAvailable,
		},
		ReferenceInstants: Instants{
			Standard: opts.Instants.Standard.UTC().Format(time.RFC3339),
			Daylight: opts.Instants.Daylight.UTC().Format(time.RFC3339),
		},
		Profile:   append([]profiler.Measurement{}, opts.Profile...),
		Scenarios: make([]ScenarioRecord, 0, len(summary.Results)),
		Passed:    summary.Passed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	}
	if opts.FuzzConfig != nil {
		d.FuzzConfig = &FuzzConfig{
			Samples:          opts.FuzzConfig.Samples,
			ThresholdPercent: opts.FuzzConfig.ThresholdPercent,
			MismatchLimit:    opts.FuzzConfig.MismatchLimit,
			Seed:             opts.FuzzConfig.Seed,
		}
	}
	if opts.Fuzz != nil {
		limit := fuzz.DefaultMismatchLimit
		if opts.FuzzConfig != nil {
			limit = opts.FuzzConfig.MismatchLimit
		}
		first := opts.Fuzz.FirstMismatches(limit)
		if first == nil {
			first = []fuzz.MismatchRecord{}
		}
		d.Fuzz = &FuzzSummary{Result: *opts.Fuzz, FirstMismatches: first}
	}
	for _, r := range summary.Results {
		rec := ScenarioRecord{Name: r.Name, Status: string(r.Status), DurationNS: r.Duration.Nanoseconds()}
		if r.Err != nil {
			rec.Class = string(tzerr.ClassOf(r.Err))
			rec.Error = r.Err.Error()
		}
		d.Scenarios = append(d.Scenarios, rec)
	}
	if err := Seal(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Digest computes the canonical digest of d, ignoring d.DigestSHA256.
func Digest(d *Document) (string, error) {
	if d == nil {
		return "", fmt.Errorf("report is nil")
	}
	clone := *d
	clone.DigestSHA256 = ""
	raw, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	canonical, err := cyberphone.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Seal sets d.DigestSHA256.
func Seal(d *Document) error {
	digest, err := Digest(d)
	if err != nil {
		return err
	}
	d.DigestSHA256 = digest
	return nil
}

// Write stores d as indented JSON.
func Write(path string, d *Document) error {
	if d == nil {
		return fmt.Errorf("report is nil")
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return tzerr.Wrap(tzerr.InternalIO, "write report file", err)
	}
	return nil
}

// Load reads a report written by Write.
//
//nolint:gosec // report path is explicit operator input.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tzerr.Wrap(tzerr.InternalIO, "read report", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &d, nil
}

// Validate checks report structure, counts, and digest.
//
//nolint:gocyclo,cyclop // checks are kept explicit so a tampered report names the broken field.
func Validate(d *Document) error {
	if d == nil {
		return fmt.Errorf("report is nil")
	}
	if d.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema_version %q", d.SchemaVersion)
	}
	if _, err := uuid.Parse(d.RunID); err != nil {
		return fmt.Errorf("run_id is not a uuid: %w", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, d.GeneratedAtUTC); err != nil {
		return fmt.Errorf("generated_at_utc: %w", err)
	}
	if strings.TrimSpace(d.Resolver) == "" {
		return fmt.Errorf("resolver is required")
	}

	var passed, failed, skipped int
	seen := make(map[string]struct{}, len(d.Scenarios))
	for i, s := range d.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario[%d] has empty name", i)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("duplicate scenario %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		switch scenario.Status(s.Status) {
		case scenario.StatusPassed:
			passed++
		case scenario.StatusFailed:
			failed++
			if s.Error == "" {
				return fmt.Errorf("failed scenario %q has no error", s.Name)
			}
		case scenario.StatusSkipped:
			skipped++
		default:
			return fmt.Errorf("scenario %q has invalid status %q", s.Name, s.Status)
		}
	}
	if passed != d.Passed || failed != d.Failed || skipped != d.Skipped {
		return fmt.Errorf("scenario counts mismatch: records=%d/%d/%d header=%d/%d/%d",
			passed, failed, skipped, d.Passed, d.Failed, d.Skipped)
	}
	if d.Fuzz != nil {
		if d.Fuzz.Matches+d.Fuzz.MismatchCount != d.Fuzz.Inhabited {
			return fmt.Errorf("fuzz counts mismatch: matches+mismatches != inhabited")
		}
		if d.Fuzz.MismatchPercent != fuzz.MismatchPercent(d.Fuzz.MismatchCount, d.Fuzz.Matches) {
			return fmt.Errorf("fuzz mismatch_percent inconsistent with counts")
		}
	}

	want, err := Digest(d)
	if err != nil {
		return err
	}
	if d.DigestSHA256 != want {
		return fmt.Errorf("digest_sha256 mismatch")
	}
	return nil
}

//nolint:forbidigo // default runtime clock for report generation when no clock is injected.
func wallClockNow() time.Time {
	return time.Now()
}
