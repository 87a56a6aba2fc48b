// Package normalize canonicalizes generated credentials with URDNA2015 and
// uses the outcome as a pass/fail signal for the template that produced them.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/piprate/json-gold/ld"
)

// Status is the normalization state of the current template.
type Status string

const (
	StatusNone    Status = "none"
	StatusLoading Status = "loading"
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Result is the outcome of one check. Output holds the canonical N-Quads
// when valid and the error text when invalid.
type Result struct {
	Status Status
	Output string
	Err    error
}

// Checker checks one credential.
type Checker interface {
	Check(ctx context.Context, credential any) Result
}

// Validator runs URDNA2015 through json-gold. Each check first expands the
// credential in safe mode, which rejects terms and values that would be
// silently dropped, then normalizes it for the displayed output.
type Validator struct {
	loader  ld.DocumentLoader
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Validator.
type Option func(*Validator)

// WithLoader sets the JSON-LD document loader.
func WithLoader(l ld.DocumentLoader) Option { return func(v *Validator) { v.loader = l } }

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMetrics records check outcomes and durations.
func WithMetrics(m *Metrics) Option { return func(v *Validator) { v.metrics = m } }

// NewValidator returns a Validator. Without WithLoader it uses an offline
// loader holding the embedded credential contexts.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{logger: slog.Default()}
	for _, o := range opts {
		o(v)
	}
	if v.loader == nil {
		l, err := NewLoader(LoaderOptions{Offline: true})
		if err != nil {
			return nil, err
		}
		v.loader = l
	}
	v.loader = &lockedLoader{next: v.loader}
	return v, nil
}

// Check normalizes credential, which may be any JSON-marshalable value.
// Failures are reported in the Result, never as a panic or error return.
func (v *Validator) Check(ctx context.Context, credential any) Result {
	start := time.Now()
	res := v.check(ctx, credential)
	v.metrics.observe(res.Status, time.Since(start))
	if res.Status == StatusInvalid {
		v.logger.Warn("credential normalization failed", "error", res.Err)
	}
	return res
}

func (v *Validator) check(ctx context.Context, credential any) Result {
	raw, err := json.Marshal(credential)
	if err != nil {
		return invalid(err)
	}
	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		if err := v.classify(raw); err != nil {
			done <- outcome{err: err}
			return
		}
		out, err := v.normalize(raw)
		done <- outcome{out: out, err: err}
	}()
	select {
	case <-ctx.Done():
		return invalid(ctx.Err())
	case o := <-done:
		if o.err != nil {
			return invalid(o.err)
		}
		return Result{Status: StatusValid, Output: o.out}
	}
}

// classify expands the credential in safe mode. Normalize builds its own
// options for the RDF step and loses SafeMode, so the check runs on Expand.
func (v *Validator) classify(raw []byte) error {
	doc, err := decode(raw)
	if err != nil {
		return err
	}
	opts := v.options()
	opts.SafeMode = true
	_, err = ld.NewJsonLdProcessor().Expand(doc, opts)
	return err
}

func (v *Validator) normalize(raw []byte) (string, error) {
	doc, err := decode(raw)
	if err != nil {
		return "", err
	}
	opts := v.options()
	opts.Algorithm = ld.AlgorithmURDNA2015
	opts.Format = "application/n-quads"
	out, err := ld.NewJsonLdProcessor().Normalize(doc, opts)
	if err != nil {
		return "", err
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("unexpected normalization output %T", out)
	}
	return s, nil
}

func (v *Validator) options() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = v.loader
	return opts
}

// decode gives each pass its own copy of the credential.
func decode(raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func invalid(err error) Result {
	return Result{
		Status: StatusInvalid,
		Output: "Error normalizing credential: " + err.Error(),
		Err:    err,
	}
}
