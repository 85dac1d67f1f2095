// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package hash

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	math "github.com/IBM/mathlib"
	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of a digest returned by Sum.
const DigestLengthBytes = 32

// WriterToWithDomain is a value which can be hashed with a domain separator.
type WriterToWithDomain interface {
	io.WriterTo
	// Domain returns a context string, which should be unique for each implementor
	Domain() string
}

// BytesWithDomain is a useful wrapper to annotate some chunk of data with a domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string {
	return b.TheDomain
}

// Hash is the hash function we use for generating commitments, consuming CMP types, etc.
//
// Internally, this is a wrapper around blake3, which takes care of encoding
// values as a length prefixed, domain separated sequence.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash struct where the internal hash function is initialized with "PPETS".
func New(initialData ...interface{}) *Hash {
	hash := &Hash{h: blake3.New()}
	_, _ = hash.h.WriteString("PPETS")
	if err := hash.WriteAny(initialData...); err != nil {
		panic(err)
	}
	return hash
}

// Digest returns a reader for the current value of the hash.
//
// The reader is infinitely long and may be used to derive more than one output.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Each value is written as (domain, length, bytes) so that distinct sequences of
// values never produce the same stream.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var toBeWritten WriterToWithDomain
		switch t := d.(type) {
		case []byte:
			toBeWritten = BytesWithDomain{"[]byte", t}
		case string:
			toBeWritten = BytesWithDomain{"string", []byte(t)}
		case uint64:
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], t)
			toBeWritten = BytesWithDomain{"uint64", buf[:]}
		case *big.Int:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil *big.Int")
			}
			toBeWritten = BytesWithDomain{"big.Int", t.Bytes()}
		case *math.Zr:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil scalar")
			}
			toBeWritten = BytesWithDomain{"Zr", t.Bytes()}
		case *math.G1:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil G1 element")
			}
			toBeWritten = BytesWithDomain{"G1", t.Bytes()}
		case *math.G2:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil G2 element")
			}
			toBeWritten = BytesWithDomain{"G2", t.Bytes()}
		case WriterToWithDomain:
			toBeWritten = t
		default:
			return fmt.Errorf("hash.WriteAny: invalid type provided as input: %T", d)
		}

		var body bytesCounter
		if _, err := toBeWritten.WriteTo(&body); err != nil {
			return err
		}
		domain := toBeWritten.Domain()
		var lengths [16]byte
		binary.BigEndian.PutUint64(lengths[:8], uint64(len(domain)))
		binary.BigEndian.PutUint64(lengths[8:], uint64(len(body.buf)))
		_, _ = hash.h.Write(lengths[:8])
		_, _ = hash.h.WriteString(domain)
		_, _ = hash.h.Write(lengths[8:])
		_, _ = hash.h.Write(body.buf)
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// Fork clones this hash, and then writes some data.
func (hash *Hash) Fork(data ...interface{}) *Hash {
	newHash := hash.Clone()
	_ = newHash.WriteAny(data...)
	return newHash
}

// Sum256 is a one-shot digest of data under the given domain.
func Sum256(domain string, data []byte) [32]byte {
	h := blake3.NewDeriveKey(domain)
	_, _ = h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type bytesCounter struct {
	buf []byte
}

func (b *bytesCounter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
