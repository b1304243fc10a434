package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hohparser/internal/pyast"
)

// DefaultMaxFileSize bounds the size of analyzed content.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var (
	// ErrRead wraps failures to read a file from disk.
	ErrRead = errors.New("failed to read file")
	// ErrFileTooLarge is returned for content above the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidContent is returned for content that is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")
)

// Observer receives the outcome of each analysis. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveAnalysis(outcome string, elapsed time.Duration, unit *SourceUnit)
}

// Analysis outcomes reported to an Observer.
const (
	OutcomeOK          = "ok"
	OutcomeSyntaxError = "syntax_error"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// Analyzer turns Python source into SourceUnits. It holds no per-analysis
// state and is safe for concurrent use.
type Analyzer struct {
	maxFileSize int64
	logger      *slog.Logger
	observer    Observer
	tracer      trace.Tracer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the content size limit. Values <= 0 keep the default.
func WithMaxFileSize(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxFileSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers an Observer for analysis outcomes.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// NewAnalyzer creates an analyzer for a given language.
func NewAnalyzer(lang string, opts ...Option) (*Analyzer, error) {
	switch lang {
	case "python", "py":
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	a := &Analyzer{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
		tracer:      otel.Tracer("hohparser/extractor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// MaxFileSize reports the configured content size limit.
func (a *Analyzer) MaxFileSize() int64 {
	return a.maxFileSize
}

// AnalyzeFile reads path and analyzes it. The path doubles as the file id.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*SourceUnit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w %s: is a directory", ErrRead, path)
	}
	if info.Size() > a.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), a.maxFileSize)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return a.AnalyzeContent(ctx, path, src)
}

// AnalyzeText analyzes source held in a string.
func (a *Analyzer) AnalyzeText(ctx context.Context, name, text string) (*SourceUnit, error) {
	return a.AnalyzeContent(ctx, name, []byte(text))
}

// AnalyzeContent analyzes inline source. name is used as the unit's path and
// as the file id of its relationships. Either a complete unit or an error is
// returned, never both.
func (a *Analyzer) AnalyzeContent(ctx context.Context, name string, content []byte) (unit *SourceUnit, err error) {
	ctx, span := a.tracer.Start(ctx, "extractor.Analyze", trace.WithAttributes(
		attribute.String("file", name),
		attribute.Int("size", len(content)),
	))
	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if a.observer != nil {
			a.observer.ObserveAnalysis(outcome, time.Since(start), unit)
		}
	}()

	if int64(len(content)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, name, len(content), a.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod, err := pyast.Parse(ctx, content, name)
	if err != nil {
		a.logger.Debug("parse failed", "file", name, "error", err)
		return nil, err
	}

	classes, functions := ExtractSymbols(mod.Body, nil)
	unit = &SourceUnit{
		Path:          name,
		Classes:       classes,
		Functions:     functions,
		Relationships: ExtractRelationships(mod, name),
		Docstring:     pyast.Docstring(mod.Body),
	}

	a.logger.Debug("analyzed file",
		"file", name,
		"classes", len(unit.Classes),
		"functions", len(unit.Functions),
		"relationships", len(unit.Relationships),
		"elapsed", time.Since(start),
	)
	return unit, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, pyast.ErrSyntax):
		return OutcomeSyntaxError
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrInvalidContent), errors.Is(err, ErrRead):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
