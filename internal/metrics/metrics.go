// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package metrics collects named timing counters of protocol runs.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"google.golang.org/protobuf/types/known/structpb"
)

// Entry accumulates the measurements of one name.
type Entry struct {
	Total time.Duration `json:"total" cbor:"1,keyasint"`
	Count int           `json:"count" cbor:"2,keyasint"`
	Bytes int           `json:"bytes" cbor:"3,keyasint"`
}

// Mean returns Total/Count.
func (e Entry) Mean() time.Duration {
	if e.Count == 0 {
		return 0
	}
	return e.Total / time.Duration(e.Count)
}

// Timers is safe for concurrent use. A Stop without a matching Start is ignored.
type Timers struct {
	mtx     sync.Mutex
	now     func() time.Time
	started map[string]time.Time
	entries map[string]*Entry
}

// New creates an empty set of timers reading the wall clock.
func New() *Timers {
	return NewWithClock(time.Now)
}

// NewWithClock creates timers reading now.
func NewWithClock(now func() time.Time) *Timers {
	return &Timers{
		now:     now,
		started: make(map[string]time.Time),
		entries: make(map[string]*Entry),
	}
}

// Start marks the beginning of name.
func (t *Timers) Start(name string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.started[name] = t.now()
}

// Stop adds the time elapsed since Start(name) and bytes to the entry of name.
func (t *Timers) Stop(name string, bytes int) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	begin, ok := t.started[name]
	if !ok {
		return
	}
	delete(t.started, name)
	e, ok := t.entries[name]
	if !ok {
		e = &Entry{}
		t.entries[name] = e
	}
	e.Total += t.now().Sub(begin)
	e.Count++
	e.Bytes += bytes
}

// Snapshot copies the current entries.
func (t *Timers) Snapshot() map[string]Entry {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	out := make(map[string]Entry, len(t.entries))
	for name, e := range t.entries {
		out[name] = *e
	}
	return out
}

// Names returns the names of the recorded entries in lexical order.
func Names(snapshot map[string]Entry) []string {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds every entry of other to t.
func (t *Timers) Merge(other map[string]Entry) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for name, o := range other {
		e, ok := t.entries[name]
		if !ok {
			e = &Entry{}
			t.entries[name] = e
		}
		e.Total += o.Total
		e.Count += o.Count
		e.Bytes += o.Bytes
	}
}

// Struct exports a snapshot as name → {total_ns, count, bytes}.
func Struct(snapshot map[string]Entry) (*structpb.Struct, error) {
	fields := make(map[string]interface{}, len(snapshot))
	for name, e := range snapshot {
		fields[name] = map[string]interface{}{
			"total_ns": float64(e.Total.Nanoseconds()),
			"count":    float64(e.Count),
			"bytes":    float64(e.Bytes),
		}
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("metrics: export: %w", err)
	}
	return s, nil
}

// Chart renders the mean duration of every entry as an HTML bar chart.
func Chart(w io.Writer, title string, snapshot map[string]Entry) error {
	names := Names(snapshot)
	items := make([]opts.BarData, len(names))
	for i, name := range names {
		items[i] = opts.BarData{Value: float64(snapshot[name].Mean().Microseconds())}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "mean duration (µs)"}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
	)
	bar.SetXAxis(names).AddSeries("mean", items)
	return bar.Render(w)
}
