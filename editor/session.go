// Package editor holds the state of one template editing session: the form,
// the context list and everything derived from them.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/example"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/normalize"
)

// View is the editor view currently shown.
type View string

const (
	ViewForm View = "form"
	ViewJSON View = "json"
)

// Session owns one FormData and one context list. Every mutation re-derives
// the schema, the example credential and the normalization status. A Session
// is safe for concurrent use.
type Session struct {
	id string

	mu        sync.Mutex
	form      vcschema.FormData
	contexts  vcschema.Contexts
	view      View
	jsonInput string
	jsonErr   error

	schema   *jsonschema.Document
	example  *example.Credential
	warnings vcschema.Issues
	settled  chan struct{}

	checker  normalize.Checker
	tracker  *normalize.Tracker
	metrics  *normalize.Metrics
	events   *dispatcher
	onSubmit func(*jsonschema.Document) error
	clock    func() time.Time
	newID    func() string
	logger   *slog.Logger
	initial  *jsonschema.Document

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithChecker sets the normalization checker. The default is an offline
// normalize.Validator.
func WithChecker(c normalize.Checker) Option { return func(s *Session) { s.checker = c } }

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records stale normalization results.
func WithMetrics(m *normalize.Metrics) Option { return func(s *Session) { s.metrics = m } }

// WithClock sets the clock used for example timestamps.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.clock = now } }

// WithIDGenerator sets the generator of field IDs.
func WithIDGenerator(fn func() string) Option { return func(s *Session) { s.newID = fn } }

// WithID sets the session ID. The default is a random UUID.
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// WithSchema loads doc as the initial template.
func WithSchema(doc *jsonschema.Document) Option { return func(s *Session) { s.initial = doc } }

// OnValidationChange registers fn, called with status == valid after each
// normalization status change. Calls happen in order on a separate goroutine.
func OnValidationChange(fn func(valid bool)) Option {
	return func(s *Session) { s.events.fn = fn }
}

// OnSubmit registers fn, called by Submit with the exported schema.
func OnSubmit(fn func(*jsonschema.Document) error) Option {
	return func(s *Session) { s.onSubmit = fn }
}

// New returns a session holding an empty template, or the template given
// with WithSchema.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		form:     vcschema.NewFormData(),
		contexts: vcschema.DefaultContexts(),
		view:     ViewForm,
		events:   &dispatcher{},
		clock:    time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.checker == nil {
		v, err := normalize.NewValidator(normalize.WithLogger(s.logger), normalize.WithMetrics(s.metrics))
		if err != nil {
			return nil, err
		}
		s.checker = v
	}
	s.logger = s.logger.With("session", s.id)
	s.tracker = normalize.NewTracker(s.logger, s.metrics)
	s.tracker.OnChange(func(st normalize.Status) { s.events.push(st == normalize.StatusValid) })
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initial != nil {
		form, contexts, diag, err := vcschema.Import(s.initial)
		if err != nil {
			s.cancel()
			return nil, err
		}
		s.setForm(form, contexts, diag)
	}
	s.refresh()
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Close cancels pending normalization checks.
func (s *Session) Close() { s.cancel() }

// Load replaces the template with doc.
func (s *Session) Load(doc *jsonschema.Document) error {
	form, contexts, diag, err := vcschema.Import(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setForm(form, contexts, diag)
	s.refresh()
	return nil
}

// setForm must be called with mu held.
func (s *Session) setForm(form vcschema.FormData, contexts vcschema.Contexts, diag vcschema.Diag) {
	adoptIDs(s.form.Properties, form.Properties)
	s.assignFieldIDs(form.Properties)
	s.form, s.contexts = form, contexts
	for _, w := range diag.Warnings {
		s.logger.Warn("schema import", "code", w.Code, "path", w.Path, "message", w.Message)
	}
}

// refresh re-derives the schema and the example and starts a normalization
// check. It must be called with mu held.
func (s *Session) refresh() {
	s.schema = vcschema.Export(s.form, s.contexts)
	s.example = example.Generate(s.schema, example.WithClock(s.clock))
	s.warnings = vcschema.CheckExamples(s.form.Properties)

	gen := s.tracker.Begin()
	done := make(chan struct{})
	s.settled = done
	cred := s.example
	go func() {
		defer close(done)
		res := s.checker.Check(s.ctx, cred)
		s.tracker.Resolve(gen, res)
	}()
}

// Wait blocks until the latest normalization check has settled and its
// status change has been delivered.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		done := s.settled
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
		s.mu.Lock()
		latest := s.settled == done
		s.mu.Unlock()
		if latest {
			return s.events.wait(ctx)
		}
	}
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ID         string
	Form       vcschema.FormData
	Contexts   vcschema.Contexts
	Schema     *jsonschema.Document
	Example    *example.Credential
	Status     normalize.Status
	Normalized string
	View       View
	JSONInput  string
	JSONError  error
	Warnings   vcschema.Issues
}

// Snapshot returns the current state. Form and contexts are deep copies; the
// schema and example are shared and must not be modified.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, out := s.tracker.Status()
	return Snapshot{
		ID:         s.id,
		Form:       s.form.Clone(),
		Contexts:   append(vcschema.Contexts(nil), s.contexts...),
		Schema:     s.schema,
		Example:    s.example,
		Status:     status,
		Normalized: out,
		View:       s.view,
		JSONInput:  s.jsonInput,
		JSONError:  s.jsonErr,
		Warnings:   s.warnings,
	}
}

// Status returns the normalization status.
func (s *Session) Status() normalize.Status {
	st, _ := s.tracker.Status()
	return st
}

// Schema returns the exported schema. It must not be modified.
func (s *Session) Schema() *jsonschema.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}
