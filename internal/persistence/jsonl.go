package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/luck-talent/internal/engine"
)

// TickLine is one JSONL entry: a tick's snapshot plus the metric error text.
type TickLine struct {
	*engine.Snapshot
	MetricError string `json:"metric_error,omitempty"`
}

// JSONLZstdWriter writes one compressed JSONL line per tick. It implements
// engine.Reporter.
type JSONLZstdWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// CreateJSONLZstd creates (or truncates) path and any missing parent
// directories.
func CreateJSONLZstd(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Report appends snap as one line.
func (w *JSONLZstdWriter) Report(snap *engine.Snapshot) error {
	line := TickLine{Snapshot: snap}
	if snap.MetricErr != nil {
		line.MetricError = snap.MetricErr.Error()
	}
	b, err := json.Marshal(line)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return errors.New("jsonl writer closed")
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered lines and finishes the zstd frame.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	err1 := w.w.Flush()
	err2 := w.enc.Close()
	err3 := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(err1, err2, err3)
}

// ReadJSONLZstd decodes every line of a file written by JSONLZstdWriter.
func ReadJSONLZstd(path string) ([]TickLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []TickLine
	jd := json.NewDecoder(dec)
	for {
		var line TickLine
		if err := jd.Decode(&line); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		out = append(out, line)
	}
	return out, nil
}
