// Package zerobuild turns a binary into a populated ir.Model: sections and
// their bytes, symbols, the entry block and the auxiliary tables.
package zerobuild

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// Version is recorded in every model as the generator version.
var Version = "0.1.0-dev"

var (
	// ErrNoModel is returned when the binary cannot be opened or parsed.
	ErrNoModel = errors.New("no model produced")
	// ErrEntryUnresolved is returned when no byte range covers the entry
	// address. A model without an entry block is never returned.
	ErrEntryUnresolved = errors.New("entry address not covered by any byte range")
)

// Diagnostic reports a zero-filled span [Start, End) of a section whose
// file content is shorter than its declared size.
type Diagnostic struct {
	Section string
	Start   uint64
	End     uint64
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("Zero filling uninitialized section fragment: %#x-%#x (%s)", d.Start, d.End, d.Section)
}

// DiagnosticSink receives non-fatal construction diagnostics.
type DiagnosticSink func(Diagnostic)

// LoggerSink forwards diagnostics to l at warn level.
func LoggerSink(l *log.Logger) DiagnosticSink {
	return func(d Diagnostic) {
		l.Warn("Zero filling uninitialized section fragment",
			"section", d.Section,
			"start", fmt.Sprintf("%#x", d.Start),
			"end", fmt.Sprintf("%#x", d.End))
	}
}

// Builder assembles models. A Builder holds no per-binary state and can
// be reused.
type Builder struct {
	logger  *log.Logger
	sink    DiagnosticSink
	open    func(path string) (loader.Reader, error)
	version string
}

type Option func(*Builder)

// WithLogger sets the logger used for progress messages and, unless
// WithDiagnostics is given, for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithDiagnostics replaces the diagnostic sink.
func WithDiagnostics(sink DiagnosticSink) Option {
	return func(b *Builder) { b.sink = sink }
}

// WithOpener replaces loader.Open.
func WithOpener(open func(path string) (loader.Reader, error)) Option {
	return func(b *Builder) { b.open = open }
}

// WithVersion overrides the recorded generator version.
func WithVersion(v string) Option {
	return func(b *Builder) { b.version = v }
}

func New(opts ...Option) *Builder {
	b := &Builder{
		logger:  log.Default(),
		open:    loader.Open,
		version: Version,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.sink == nil {
		b.sink = LoggerSink(b.logger)
	}
	return b
}

// Build opens the binary at path and constructs its model. It returns
// ErrNoModel when the binary is unusable and ErrEntryUnresolved when the
// entry point cannot be placed.
func (b *Builder) Build(path string) (*ir.Model, error) {
	r, err := b.open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrNoModel, "%s: %v", path, err)
	}
	defer r.Close()
	return b.BuildFrom(path, r)
}

// BuildFrom constructs the model for path from an already opened reader.
// Sections, symbols, the entry block and the auxiliary tables are built
// in that order.
func (b *Builder) BuildFrom(path string, r loader.Reader) (*ir.Model, error) {
	if !r.Valid() {
		if reason := loader.Reason(r); reason != nil {
			return nil, errors.Wrapf(ErrNoModel, "%s: %v", path, reason)
		}
		return nil, errors.Wrap(ErrNoModel, path)
	}

	m := ir.New(path)
	m.Format = r.Format()
	m.ISA = r.ISA()

	b.BuildSections(m, r)
	b.BuildSymbols(m, r)
	if err := AddEntryBlock(m, r); err != nil {
		return nil, err
	}
	b.AddAuxiliaryTables(m, r)

	b.logger.Debug("Built model",
		"name", m.Name,
		"format", m.Format,
		"isa", m.ISA,
		"sections", len(m.Sections()),
		"symbols", len(m.Symbols()))
	return m, nil
}
