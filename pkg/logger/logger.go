package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jwalton/go-supportscolor"
	slogmulti "github.com/samber/slog-multi"
	slogsampling "github.com/samber/slog-sampling"
)

const (
	errKey = "err"
)

var (
	DefaultLogLevel   = slog.LevelDebug
	DefaultWriter     = os.Stdout
	DefaultAddSource  = true
	NoRepeatInterval  = 3600 * time.Hour // arbitrarily long time to denote one-time sampling
	DefaultTimeFormat = "2006 Jan 02 15:04:05"
)

type noAllocErr struct{ error }

func Err(e error) slog.Attr {
	if e != nil {
		e = noAllocErr{e}
	}
	return slog.Any(errKey, e)
}

func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type LoggerOptions struct {
	Level         slog.Leveler
	Writer        io.Writer
	AddSource     bool
	ColorEnabled  bool
	Sampling      *slogsampling.ThresholdSamplingOption
	ExtraHandlers []slog.Handler
}

type LoggerOption func(o *LoggerOptions)

func (o *LoggerOptions) apply(opts ...LoggerOption) {
	for _, op := range opts {
		op(o)
	}
}

func WithLogLevel(level slog.Leveler) LoggerOption {
	return func(o *LoggerOptions) {
		o.Level = level
	}
}

func WithWriter(w io.Writer) LoggerOption {
	return func(o *LoggerOptions) {
		o.Writer = w
	}
}

func WithDisableCaller() LoggerOption {
	return func(o *LoggerOptions) {
		o.AddSource = false
	}
}

func WithColor(enabled bool) LoggerOption {
	return func(o *LoggerOptions) {
		o.ColorEnabled = enabled
	}
}

// WithSampling drops repeated identical records within each tick window once
// the threshold is exceeded.
func WithSampling(opt *slogsampling.ThresholdSamplingOption) LoggerOption {
	return func(o *LoggerOptions) {
		o.Sampling = opt
	}
}

// WithExtraHandlers fans records out to additional handlers alongside the
// default one.
func WithExtraHandlers(handlers ...slog.Handler) LoggerOption {
	return func(o *LoggerOptions) {
		o.ExtraHandlers = append(o.ExtraHandlers, handlers...)
	}
}

func New(opts ...LoggerOption) *slog.Logger {
	options := &LoggerOptions{
		Level:        DefaultLogLevel,
		Writer:       DefaultWriter,
		AddSource:    DefaultAddSource,
		ColorEnabled: supportscolor.Stdout().SupportsColor,
	}
	options.apply(opts...)

	handler := newHandler(options)
	if len(options.ExtraHandlers) > 0 {
		handler = slogmulti.Fanout(append([]slog.Handler{handler}, options.ExtraHandlers...)...)
	}
	if options.Sampling != nil {
		handler = slogmulti.Pipe(options.Sampling.NewMiddleware()).Handler(handler)
	}
	return slog.New(handler)
}

func newHandler(options *LoggerOptions) slog.Handler {
	handlerOpts := &slog.HandlerOptions{
		Level:       options.Level,
		AddSource:   options.AddSource,
		ReplaceAttr: replaceAttrs(options),
	}
	return slog.NewTextHandler(options.Writer, handlerOpts)
}

func replaceAttrs(options *LoggerOptions) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			a.Value = slog.StringValue(a.Value.Time().Format(DefaultTimeFormat))
			return a
		}
		if a.Key == slog.LevelKey && options.ColorEnabled {
			level := a.Value.Any().(slog.Level)
			a.Value = slog.StringValue(colorizeLevel(level))
		}
		return a
	}
}
