// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
)

// Uint64 encodes v as 8 big-endian bytes.
func Uint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// Bool encodes b as a single byte.
func Bool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

// OptionalG1 encodes p, or an empty element when p is nil.
func OptionalG1(p *math.G1) []byte {
	if p == nil {
		return []byte{}
	}
	return p.Bytes()
}

// Reader parses the elements of a decoded envelope.
// The first failure is kept and every later call returns a zero value.
type Reader struct {
	group    *curve.Curve
	elements [][]byte
	err      error
}

// NewReader wraps elements for parsing with group.
func NewReader(group *curve.Curve, elements [][]byte) *Reader {
	return &Reader{group: group, elements: elements}
}

// Err returns the first parse failure as a *DataError, or nil.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(i int, what string, err error) {
	if r.err == nil {
		r.err = &DataError{Reason: fmt.Sprintf("element %d: %s", i, what), Err: err}
	}
}

func (r *Reader) at(i int) ([]byte, bool) {
	if r.err != nil {
		return nil, false
	}
	if i < 0 || i >= len(r.elements) {
		r.fail(i, "missing", nil)
		return nil, false
	}
	return r.elements[i], true
}

// Bytes returns element i unchanged.
func (r *Reader) Bytes(i int) []byte {
	b, _ := r.at(i)
	return b
}

// String returns element i as UTF-8 text.
func (r *Reader) String(i int) string {
	b, ok := r.at(i)
	if !ok {
		return ""
	}
	if !utf8.Valid(b) {
		r.fail(i, "invalid UTF-8", nil)
		return ""
	}
	return string(b)
}

// Uint64 returns element i as an 8 byte big-endian integer.
func (r *Reader) Uint64(i int) uint64 {
	b, ok := r.at(i)
	if !ok {
		return 0
	}
	if len(b) != 8 {
		r.fail(i, fmt.Sprintf("integer of length %d", len(b)), nil)
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Bool returns element i as a boolean.
func (r *Reader) Bool(i int) bool {
	b, ok := r.at(i)
	if !ok {
		return false
	}
	if len(b) != 1 || b[0] > 1 {
		r.fail(i, "invalid boolean", nil)
		return false
	}
	return b[0] == 1
}

// Scalar returns element i as a scalar of ℤₚ.
func (r *Reader) Scalar(i int) *math.Zr {
	b, ok := r.at(i)
	if !ok {
		return nil
	}
	s, err := r.group.ScalarFromBytes(b)
	if err != nil {
		r.fail(i, "scalar", err)
		return nil
	}
	return s
}

// G1 returns element i as a non identity element of G1.
func (r *Reader) G1(i int) *math.G1 {
	b, ok := r.at(i)
	if !ok {
		return nil
	}
	p, err := r.group.G1FromBytes(b)
	if err != nil {
		r.fail(i, "G1 element", err)
		return nil
	}
	return p
}

// OptionalG1 is G1 but maps an empty element to nil.
func (r *Reader) OptionalG1(i int) *math.G1 {
	b, ok := r.at(i)
	if !ok || len(b) == 0 {
		return nil
	}
	return r.G1(i)
}

// G2 returns element i as a non identity element of G2.
func (r *Reader) G2(i int) *math.G2 {
	b, ok := r.at(i)
	if !ok {
		return nil
	}
	p, err := r.group.G2FromBytes(b)
	if err != nil {
		r.fail(i, "G2 element", err)
		return nil
	}
	return p
}
