// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package save persists the outcome of benchmark runs.
package save

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/metrics"
)

var ErrEmptyPath = errors.New("save: empty path")

// Record is what a run leaves behind: its inputs, the timers and one report per validation.
type Record struct {
	Variant string                   `cbor:"1,keyasint"`
	Side    string                   `cbor:"2,keyasint"`
	Stage   string                   `cbor:"3,keyasint"`
	Params  []string                 `cbor:"4,keyasint"`
	Runs    int                      `cbor:"5,keyasint"`
	Failed  int                      `cbor:"6,keyasint"`
	Timers  map[string]metrics.Entry `cbor:"7,keyasint"`
	Reports []memory.RoundReport     `cbor:"8,keyasint"`
	Traced  []string                 `cbor:"9,keyasint,omitempty"`
}

// Add folds the outcome of one run into r.
func (r *Record) Add(mem *memory.Shared) {
	r.Runs++
	if mem.Err != nil {
		r.Failed++
	}
	if r.Timers == nil {
		r.Timers = make(map[string]metrics.Entry)
	}
	if mem.Timers != nil {
		for name, e := range mem.Timers.Snapshot() {
			acc := r.Timers[name]
			acc.Count += e.Count
			acc.Total += e.Total
			acc.Bytes += e.Bytes
			r.Timers[name] = acc
		}
	}
	r.Reports = append(r.Reports, mem.Reports...)
	if mem.Traced != "" {
		r.Traced = append(r.Traced, string(mem.Traced))
	}
}

// WriteRecord saves r to path, creating the parent directories.
func WriteRecord(path string, r *Record) error {
	data, err := cbor.Marshal(r)
	if err != nil {
		return err
	}
	return WriteFixtureFile(path, data)
}

// ReadRecord loads a record written by WriteRecord.
func ReadRecord(path string) (*Record, error) {
	data, err := ReadFixtureFile(path)
	if err != nil {
		return nil, err
	}
	r := &Record{}
	if err = cbor.Unmarshal(data, r); err != nil {
		log.Errorf("unable to decode save file %s", path)
		return nil, fmt.Errorf("save: %s: %w", path, err)
	}
	return r, nil
}

// WriteFixtureFile writes data to path, replacing any previous content.
func WriteFixtureFile(path string, data []byte) error {
	if path == "" {
		return ErrEmptyPath
	}
	fileName := filepath.Clean(path)
	err := os.MkdirAll(filepath.Dir(fileName), 0755)
	if err != nil {
		log.Errorln(err)
		return err
	}
	fd, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Errorf("unable to open save file %s for writing", fileName)
		return err
	}
	_, err = fd.Write(data)
	if err != nil {
		_ = fd.Close()
		log.Errorf("unable to write save file %s", fileName)
		return err
	}
	err = fd.Close()
	if err != nil {
		log.Errorf("unable to close save file %s", fileName)
		return err
	}
	log.Infof("done wrote save file %s", fileName)
	return nil
}

// ReadFixtureFile returns the whole content of path.
func ReadFixtureFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	fileName := filepath.Clean(path)
	data, err := os.ReadFile(fileName)
	if err != nil {
		log.Errorf("unable to read save file %s", fileName)
		return nil, err
	}
	log.Infof("done read save file %s", fileName)
	return data, nil
}

// DeleteFixtureFile removes path.
func DeleteFixtureFile(path string) error {
	err := os.Remove(filepath.Clean(path))
	if err != nil {
		log.Errorf("unable to delete save file %s", path)
		return err
	}
	return nil
}
