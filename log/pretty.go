package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ANSI color codes for pretty printing.
const (
	colorReset   = "\033[0m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// prettyHandler writes colorized records either as one key=value line
// (FormatText) or as an indented object (FormatJSON).
//
// Attributes added with WithAttrs are pre-rendered once and stored with the
// group path that was open when they were added.
type prettyHandler struct {
	opts       slog.HandlerOptions
	format     Format
	formatTime FormatTime
	mu         *sync.Mutex
	w          io.Writer
	groups     []string
	attrs      []prettyAttr
}

type prettyAttr struct {
	key   string
	value slog.Value
}

func newPrettyHandler(
	w io.Writer,
	format Format,
	formatTime FormatTime,
	opts *slog.HandlerOptions,
) *prettyHandler {
	return &prettyHandler{
		opts:       *opts,
		format:     format,
		formatTime: formatTime,
		mu:         &sync.Mutex{},
		w:          w,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.attrs = slices.Clone(h.attrs)

	for _, a := range attrs {
		c.attrs = append(c.attrs, h.flatten(h.groups, a)...)
	}

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]prettyAttr, 0, 4+len(h.attrs)+r.NumAttrs())

	if !r.Time.IsZero() {
		if ts := h.formatTime(r.Time); ts != "" {
			fields = append(fields, prettyAttr{slog.TimeKey, slog.StringValue(ts)})
		}
	}

	fields = append(fields,
		prettyAttr{slog.LevelKey, slog.AnyValue(r.Level)})

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			fields = append(fields, prettyAttr{
				slog.SourceKey,
				slog.StringValue(fmt.Sprintf("%s:%d", src.File, src.Line)),
			})
		}
	}

	fields = append(fields, prettyAttr{slog.MessageKey, slog.StringValue(r.Message)})
	fields = append(fields, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.flatten(h.groups, a)...)

		return true
	})

	buf := new(bytes.Buffer)

	switch h.format {
	case FormatJSON:
		buf.WriteString("{\n")

		for i, f := range fields {
			if i > 0 {
				buf.WriteString(",\n")
			}

			buf.WriteString("  ")
			writeKey(buf, f.key)
			buf.WriteString(": ")
			writeValue(buf, f.value)
		}

		buf.WriteString("\n}\n")

	default:
		for i, f := range fields {
			if i > 0 {
				buf.WriteByte(' ')
			}

			writeKey(buf, f.key)
			buf.WriteByte('=')
			writeValue(buf, f.value)
		}

		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// flatten resolves a and expands groups into dotted keys.
func (h *prettyHandler) flatten(groups []string, a slog.Attr) []prettyAttr {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return nil
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := groups
		if a.Key != "" {
			sub = append(slices.Clip(groups), a.Key)
		}

		var out []prettyAttr

		for _, ga := range a.Value.Group() {
			out = append(out, h.flatten(sub, ga)...)
		}

		return out
	}

	if rep := h.opts.ReplaceAttr; rep != nil {
		a = rep(groups, a)
		if a.Key == "" {
			return nil
		}
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	return []prettyAttr{{key, a.Value}}
}

func writeKey(buf *bytes.Buffer, key string) {
	buf.WriteString(colorGray)
	buf.WriteString(key)
	buf.WriteString(colorReset)
}

func writeValue(buf *bytes.Buffer, v slog.Value) {
	color, text := colorCyan, ""

	switch v.Kind() {
	case slog.KindString:
		text = v.String()

	case slog.KindInt64:
		color, text = colorYellow, strconv.FormatInt(v.Int64(), 10)

	case slog.KindUint64:
		color, text = colorYellow, strconv.FormatUint(v.Uint64(), 10)

	case slog.KindFloat64:
		color, text = colorYellow, strconv.FormatFloat(v.Float64(), 'g', -1, 64)

	case slog.KindBool:
		color, text = colorRed, "false"
		if v.Bool() {
			color, text = colorGreen, "true"
		}

	case slog.KindDuration:
		color, text = colorMagenta, v.Duration().String()

	case slog.KindTime:
		color, text = colorBlue, v.Time().String()

	default:
		level, ok := v.Any().(slog.Level)
		if !ok {
			if v.Any() == nil {
				color, text = colorGray, "null"
			} else {
				text = fmt.Sprint(v.Any())
			}

			break
		}

		switch {
		case level >= slog.LevelError:
			color = colorRed
		case level >= slog.LevelWarn:
			color = colorYellow
		case level >= slog.LevelInfo:
			color = colorGreen
		default:
			color = colorBlue
		}

		text = Level(level).String()
	}

	buf.WriteString(color)
	buf.WriteString(text)
	buf.WriteString(colorReset)
}
