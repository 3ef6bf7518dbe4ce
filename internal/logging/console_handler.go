package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05"

// prettyHandler renders records for a terminal. Info records list their
// fields as bullets below the header, progress records collapse onto the
// header line, and debug records dump every attribute.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	// seen holds the last rendered value per label for each job so repeated
	// info fields are printed once.
	seen map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		mu:        &sync.Mutex{},
		writer:    w,
		level:     lvl,
		addSource: addSource,
		seen:      make(map[string]map[string]string),
	}
}

// subject identifies who a record is about.
type subject struct {
	component string
	jobID     string
	kind      string
}

func (s subject) cacheKey() string {
	if s.jobID != "" {
		return "job:" + s.jobID
	}
	return s.component
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)
	subj, fields := splitSubject(kvs)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(kvs)*32)
	h.writeHeader(&buf, ts, record.Level, subj, message, record.Source())

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case record.Level < slog.LevelInfo:
		writeDebugFields(&buf, kvs)
	case hasKey(fields, FieldProgressPercent):
		writeProgressFields(&buf, fields)
	default:
		h.writeInfoFields(&buf, subj, record.Level, fields)
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// splitSubject pulls the component, job id, and job kind out of kvs. The
// component is dropped from the returned fields; the job keys are kept so
// debug output still shows them.
func splitSubject(kvs []kv) (subject, []kv) {
	var subj subject
	fields := make([]kv, 0, len(kvs))
	for _, field := range kvs {
		switch field.key {
		case FieldComponent:
			if subj.component == "" {
				subj.component = attrString(field.value)
			}
			continue
		case FieldJobID:
			if subj.jobID == "" {
				subj.jobID = attrString(field.value)
			}
		case FieldJobKind:
			if subj.kind == "" {
				subj.kind = attrString(field.value)
			}
		}
		fields = append(fields, field)
	}
	return subj, fields
}

func (h *prettyHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, subj subject, message string, src *slog.Source) {
	buf.WriteString(ts.In(time.Local).Format(consoleTimestampLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if subj.component != "" {
		buf.WriteString(" [")
		buf.WriteString(subj.component)
		buf.WriteByte(']')
	}
	if s := FormatSubject(subj.jobID, subj.kind); s != "" {
		buf.WriteByte(' ')
		buf.WriteString(s)
	}
	buf.WriteString(" - ")
	buf.WriteString(message)
	if h.addSource && src != nil && src.File != "" {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
}

func (h *prettyHandler) writeInfoFields(buf *bytes.Buffer, subj subject, level slog.Level, attrs []kv) {
	fields, hidden := selectInfoFields(attrs)
	fields = h.dropRepeated(subj.cacheKey(), fields, level)
	buf.WriteByte('\n')
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
}

// writeProgressFields keeps progress on the header line, e.g.
// "job progress 42.0% (Position: 12s, Speed: 2.1x)".
func writeProgressFields(buf *bytes.Buffer, attrs []kv) {
	fields, _ := selectInfoFields(attrs)
	var rest []string
	for _, field := range fields {
		if field.label == displayLabel(FieldProgressPercent) {
			buf.WriteByte(' ')
			buf.WriteString(field.value)
			continue
		}
		rest = append(rest, field.label+": "+field.value)
	}
	if len(rest) > 0 {
		buf.WriteString(" (")
		buf.WriteString(strings.Join(rest, ", "))
		buf.WriteByte(')')
	}
	buf.WriteByte('\n')
}

func writeDebugFields(buf *bytes.Buffer, attrs []kv) {
	buf.WriteByte('\n')
	for _, field := range attrs {
		if field.key == "" || field.key == FieldComponent {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(field.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(field.value))
		buf.WriteByte('\n')
	}
}

// FormatSubject builds the "Job #id (kind)" subject used in console output.
func FormatSubject(jobID, kind string) string {
	jobID = strings.TrimSpace(jobID)
	kind = strings.TrimSpace(kind)
	switch {
	case jobID != "" && kind != "":
		return "Job #" + jobID + " (" + kind + ")"
	case jobID != "":
		return "Job #" + jobID
	default:
		return kind
	}
}

// dropRepeated removes info fields whose value has not changed since the
// last record for the same job. Warnings and errors always print in full.
func (h *prettyHandler) dropRepeated(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	cache, ok := h.seen[key]
	if !ok {
		cache = make(map[string]string)
		h.seen[key] = cache
	}
	if level > slog.LevelInfo {
		for _, field := range fields {
			cache[field.label] = field.value
		}
		return fields
	}
	kept := fields[:0]
	for _, field := range fields {
		if prev, ok := cache[field.label]; ok && prev == field.value {
			continue
		}
		cache[field.label] = field.value
		kept = append(kept, field)
	}
	return kept
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		seen:      h.seen,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

type kv struct {
	key   string
	value slog.Value
}

func hasKey(attrs []kv, key string) bool {
	for _, attr := range attrs {
		if attr.key == key {
			return true
		}
	}
	return false
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), attr.Key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
