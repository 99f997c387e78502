package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"tilewalk.ai/internal/sim/world"
)

// DefaultSegmentTicks is how many ticks one trace file holds.
const DefaultSegmentTicks = 3600

// TraceLogger is a tick sink writing one JSON line per tick into zstd files
// named ticks-<first tick>.jsonl.zst. The first tick is zero padded so the
// files sort in tick order.
type TraceLogger struct {
	dir          string
	segmentTicks uint64

	mu      sync.Mutex
	segment uint64
	open    bool
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewTraceLogger(runDir string) *TraceLogger {
	return NewTraceLoggerSegmented(runDir, DefaultSegmentTicks)
}

// NewTraceLoggerSegmented starts a new file every segmentTicks ticks; zero means DefaultSegmentTicks.
func NewTraceLoggerSegmented(runDir string, segmentTicks uint64) *TraceLogger {
	if segmentTicks == 0 {
		segmentTicks = DefaultSegmentTicks
	}
	return &TraceLogger{
		dir:          filepath.Join(runDir, "trace"),
		segmentTicks: segmentTicks,
	}
}

func (l *TraceLogger) WriteTick(e world.TickLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seg := e.Tick - e.Tick%l.segmentTicks
	if !l.open || seg != l.segment {
		if err := l.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

func (l *TraceLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// SegmentPath is the file holding tick.
func (l *TraceLogger) SegmentPath(tick uint64) string {
	return filepath.Join(l.dir, fmt.Sprintf("ticks-%012d.jsonl.zst", tick-tick%l.segmentTicks))
}

func (l *TraceLogger) rotateLocked(seg uint64) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.SegmentPath(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 128*1024)
	l.segment = seg
	l.open = true
	return nil
}

func (l *TraceLogger) closeLocked() error {
	var err1 error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		err1 = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	l.open = false
	return err1
}
