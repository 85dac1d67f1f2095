// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package wire packs the ordered lists of byte strings that make up every protocol payload.
//
// An envelope is a CBOR array of byte strings. Element order and boundaries
// survive a round trip, including empty elements and leading zero bytes.
package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	// MaxElements bounds the number of elements accepted by Decode.
	MaxElements = 1024
	// MaxEnvelopeSize bounds the encoded size accepted by Decode.
	MaxEnvelopeSize = 1 << 20
)

// ErrEncode is returned when a list cannot be encoded.
var ErrEncode = errors.New("wire: encode")

// DataError reports a malformed envelope.
type DataError struct {
	Reason string
	Err    error
}

// Error implement error.
func (e *DataError) Error() string {
	if e.Err == nil {
		return "wire: malformed envelope: " + e.Reason
	}
	return fmt.Sprintf("wire: malformed envelope: %s: %v", e.Reason, e.Err)
}

// Unwrap implement errors.Wrapper.
func (e *DataError) Unwrap() error {
	return e.Err
}

var decMode cbor.DecMode

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		MaxArrayElements: MaxElements,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode packs elements into a single buffer.
func Encode(elements [][]byte) ([]byte, error) {
	if len(elements) > MaxElements {
		return nil, fmt.Errorf("%w: %d elements exceed the limit of %d", ErrEncode, len(elements), MaxElements)
	}
	list := make([][]byte, len(elements))
	for i, e := range elements {
		if e == nil {
			e = []byte{}
		}
		list[i] = e
	}
	data, err := cbor.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

// MustEncode is Encode for lists built locally, whose size is known to be valid.
func MustEncode(elements ...[]byte) []byte {
	data, err := Encode(elements)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode unpacks a buffer produced by Encode.
//
// The result is never nil on success; an encoded empty list decodes to an empty, non nil slice.
func Decode(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, &DataError{Reason: "empty input"}
	}
	if len(data) > MaxEnvelopeSize {
		return nil, &DataError{Reason: fmt.Sprintf("%d bytes exceed the limit of %d", len(data), MaxEnvelopeSize)}
	}
	var raw []cbor.RawMessage
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, &DataError{Reason: "not a list", Err: err}
	}
	out := make([][]byte, len(raw))
	for i, r := range raw {
		var b []byte
		if err := decMode.Unmarshal(r, &b); err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("element %d is not a byte string", i), Err: err}
		}
		if b == nil {
			b = []byte{}
		}
		out[i] = b
	}
	return out, nil
}

// DecodeN is Decode followed by an exact element count check.
func DecodeN(data []byte, n int) ([][]byte, error) {
	elements, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(elements) != n {
		return nil, &DataError{Reason: fmt.Sprintf("expected %d elements, got %d", n, len(elements))}
	}
	return elements, nil
}
