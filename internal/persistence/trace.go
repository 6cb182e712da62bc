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

	"github.com/talgya/civsim/internal/engine"
)

// TraceEntry is one turn in the trace.
type TraceEntry struct {
	Turn      uint64            `json:"turn"`
	Report    engine.TurnReport `json:"report"`
	Year      int               `json:"year"`   // Calendar after the turn
	Season    engine.Season     `json:"season"` // Calendar after the turn
	Inventory engine.Inventory  `json:"inventory"`
	Obs       engine.Tech       `json:"obs"`
	Fire      engine.Tech       `json:"fire"`
	HasHearth bool              `json:"has_hearth"`
	People    []PersonVitals    `json:"people"`
}

// PersonVitals is the per-person slice of a trace entry.
type PersonVitals struct {
	Name   string  `json:"name"`
	Age    float64 `json:"age"`
	HP     int     `json:"hp"`
	Morale int     `json:"morale"`
	Role   string  `json:"role"`
	Alive  bool    `json:"alive"`
}

// NewTraceEntry captures the state after a turn.
func NewTraceEntry(turn uint64, s engine.WorldState, r engine.TurnReport) TraceEntry {
	people := make([]PersonVitals, 0, len(s.People))
	for _, p := range s.People {
		people = append(people, PersonVitals{
			Name:   p.Name,
			Age:    p.Age,
			HP:     p.HP,
			Morale: p.Morale,
			Role:   p.Role.String(),
			Alive:  p.Alive,
		})
	}
	return TraceEntry{
		Turn:      turn,
		Report:    r,
		Year:      s.Year,
		Season:    s.Season,
		Inventory: s.Inventory,
		Obs:       s.Obs,
		Fire:      s.Fire,
		HasHearth: s.HasHearth,
		People:    people,
	}
}

// TraceWriter writes one zstd-compressed JSONL entry per turn.
type TraceWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// CreateTrace creates (or truncates) the trace file at path.
func CreateTrace(path string) (*TraceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TraceWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write appends one entry.
func (t *TraceWriter) Write(e TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.w == nil {
		return errors.New("trace closed")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Close flushes and closes the trace.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.w == nil {
		return nil
	}
	errFlush := t.w.Flush()
	errEnc := t.enc.Close()
	errFile := t.f.Close()
	t.w, t.enc, t.f = nil, nil, nil
	return errors.Join(errFlush, errEnc, errFile)
}

// ReadTrace decodes every entry in the trace at path.
func ReadTrace(path string) ([]TraceEntry, error) {
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

	var entries []TraceEntry
	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	for {
		var e TraceEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return entries, fmt.Errorf("decode trace entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
