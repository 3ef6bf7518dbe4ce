package orchestrator

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTailLines is how many stderr lines are kept as a diagnostic.
const DefaultTailLines = 64

// lineWriter splits a byte stream into lines and hands each one to fn.
type lineWriter struct {
	mu  sync.Mutex
	buf []byte
	fn  func(string)
}

func newLineWriter(fn func(string)) *lineWriter {
	return &lineWriter{fn: fn}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexAny(w.buf, "\r\n")
		if idx < 0 {
			break
		}
		line := string(w.buf[:idx])
		w.buf = w.buf[idx+1:]
		if strings.TrimSpace(line) != "" {
			w.fn(line)
		}
	}
	return len(p), nil
}

// Flush emits a trailing unterminated line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if line := string(w.buf); strings.TrimSpace(line) != "" {
		w.fn(line)
	}
	w.buf = nil
}

// tail keeps the most recent lines of process output.
type tail struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newTail(limit int) *tail {
	if limit <= 0 {
		limit = DefaultTailLines
	}
	return &tail{limit: limit}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.limit; over > 0 {
		t.lines = append(t.lines[:0], t.lines[over:]...)
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

// progressUpdate is one block of ffmpeg -progress output.
type progressUpdate struct {
	OutTime time.Duration
	Speed   string
	Done    bool
}

// progressParser accumulates ffmpeg -progress key=value lines and emits an
// update at every progress= line.
type progressParser struct {
	current progressUpdate
	emit    func(progressUpdate)
}

func (p *progressParser) line(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.OutTime = time.Duration(us) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseClock(value); ok {
			p.current.OutTime = d
		}
	case "speed":
		p.current.Speed = value
	case "progress":
		p.current.Done = value == "end"
		if p.emit != nil {
			p.emit(p.current)
		}
	}
}

// parseClock parses HH:MM:SS.micro.
func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	return total + time.Duration(seconds*float64(time.Second)), true
}

func percentOf(outTime time.Duration, expectedSeconds float64) float64 {
	if expectedSeconds <= 0 {
		return -1
	}
	pct := outTime.Seconds() / expectedSeconds * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
