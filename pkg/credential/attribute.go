// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package credential

import (
	"errors"
	"fmt"
	"sort"

	math "github.com/IBM/mathlib"
	"github.com/fxamacker/cbor/v2"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
)

var (
	ErrSchema = errors.New("credential: attributes do not match the schema")
	ErrPolicy = errors.New("credential: policy not satisfied")
)

// Schema names the attributes certified for users: a range sub-vector of
// integers followed by a set sub-vector of strings.
type Schema struct {
	Range []string `cbor:"1,keyasint"`
	Set   []string `cbor:"2,keyasint"`
}

// Len is the total number of attributes.
func (s Schema) Len() int { return len(s.Range) + len(s.Set) }

// Check accepts attrs when they are empty or follow the schema.
func (s Schema) Check(attrs Attributes) error {
	if attrs.Empty() {
		return nil
	}
	if len(attrs.Range) != len(s.Range) || len(attrs.Set) != len(s.Set) {
		return fmt.Errorf("%w: got %d+%d attributes, expected %d+%d",
			ErrSchema, len(attrs.Range), len(attrs.Set), len(s.Range), len(s.Set))
	}
	return nil
}

// Attributes are the values certified by a credential.
type Attributes struct {
	Range []uint64 `cbor:"1,keyasint"`
	Set   []string `cbor:"2,keyasint"`
}

// Empty reports whether no attribute is present.
func (a Attributes) Empty() bool { return len(a.Range) == 0 && len(a.Set) == 0 }

// plainAttributes drops the methods of Attributes so cbor encodes its fields.
type plainAttributes Attributes

// MarshalBinary implements encoding.BinaryMarshaler.
func (a Attributes) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(plainAttributes(a))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (a *Attributes) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*plainAttributes)(a))
}

func rangeScalar(group *curve.Curve, v uint64) *math.Zr {
	return group.ScalarFromUint64(v)
}

func setScalar(group *curve.Curve, v string) *math.Zr {
	return group.HashToZr(append([]byte("ppets/attribute/set/"), v...))
}

// Scalars maps the range sub-vector, then the set sub-vector, into ℤₚ.
func (a Attributes) Scalars(group *curve.Curve) []*math.Zr {
	out := make([]*math.Zr, 0, len(a.Range)+len(a.Set))
	for _, v := range a.Range {
		out = append(out, rangeScalar(group, v))
	}
	for _, v := range a.Set {
		out = append(out, setScalar(group, v))
	}
	return out
}

// RangeRule requires Min ≤ Range[Index] ≤ Max.
type RangeRule struct {
	Index int    `cbor:"1,keyasint"`
	Min   uint64 `cbor:"2,keyasint"`
	Max   uint64 `cbor:"3,keyasint"`
}

// SetRule requires Set[Index] to be one of Allowed.
type SetRule struct {
	Index   int      `cbor:"1,keyasint"`
	Allowed []string `cbor:"2,keyasint"`
}

// Policy lists the attribute conditions a seller attaches to an offer.
// Every referenced attribute is disclosed when buying a ticket.
type Policy struct {
	Ranges []RangeRule `cbor:"1,keyasint,omitempty"`
	Sets   []SetRule   `cbor:"2,keyasint,omitempty"`
}

// Empty reports whether p discloses nothing.
func (p Policy) Empty() bool { return len(p.Ranges) == 0 && len(p.Sets) == 0 }

// plainPolicy drops the methods of Policy so cbor encodes its fields.
type plainPolicy Policy

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Policy) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(plainPolicy(p))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Policy) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*plainPolicy)(p))
}

// Validate checks that every rule references an attribute of schema.
func (p Policy) Validate(schema Schema) error {
	for _, r := range p.Ranges {
		if r.Index < 0 || r.Index >= len(schema.Range) || r.Min > r.Max {
			return fmt.Errorf("%w: invalid range rule %+v", ErrPolicy, r)
		}
	}
	for _, r := range p.Sets {
		if r.Index < 0 || r.Index >= len(schema.Set) || len(r.Allowed) == 0 {
			return fmt.Errorf("%w: invalid set rule %+v", ErrPolicy, r)
		}
	}
	return nil
}

// Disclose selects the attributes referenced by p.
func (p Policy) Disclose(a Attributes) Disclosure {
	d := Disclosure{Range: map[int]uint64{}, Set: map[int]string{}}
	for _, r := range p.Ranges {
		if r.Index >= 0 && r.Index < len(a.Range) {
			d.Range[r.Index] = a.Range[r.Index]
		}
	}
	for _, r := range p.Sets {
		if r.Index >= 0 && r.Index < len(a.Set) {
			d.Set[r.Index] = a.Set[r.Index]
		}
	}
	return d
}

// Indexes returns the absolute indexes of the attributes referenced by p in ascending order.
func (p Policy) Indexes(schema Schema) []int {
	seen := map[int]bool{}
	for _, r := range p.Ranges {
		seen[r.Index] = true
	}
	for _, r := range p.Sets {
		seen[len(schema.Range)+r.Index] = true
	}
	return sortedKeys(seen)
}

// Satisfied checks the disclosed values against every rule of p.
func (p Policy) Satisfied(d Disclosure) error {
	for _, r := range p.Ranges {
		v, ok := d.Range[r.Index]
		if !ok {
			return fmt.Errorf("%w: range attribute %d not disclosed", ErrPolicy, r.Index)
		}
		if v < r.Min || v > r.Max {
			return fmt.Errorf("%w: range attribute %d = %d outside [%d, %d]", ErrPolicy, r.Index, v, r.Min, r.Max)
		}
	}
	for _, r := range p.Sets {
		v, ok := d.Set[r.Index]
		if !ok {
			return fmt.Errorf("%w: set attribute %d not disclosed", ErrPolicy, r.Index)
		}
		found := false
		for _, allowed := range r.Allowed {
			if v == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: set attribute %d = %q not allowed", ErrPolicy, r.Index, v)
		}
	}
	return nil
}

// Disclosure holds revealed attribute values keyed by their index in the range or set sub-vector.
type Disclosure struct {
	Range map[int]uint64 `cbor:"1,keyasint"`
	Set   map[int]string `cbor:"2,keyasint"`
}

// plainDisclosure drops the methods of Disclosure so cbor encodes its fields.
type plainDisclosure Disclosure

// MarshalBinary implements encoding.BinaryMarshaler.
func (d Disclosure) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(plainDisclosure(d))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (d *Disclosure) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*plainDisclosure)(d))
}

// Scalars maps the disclosed values to their absolute attribute index.
func (d Disclosure) Scalars(group *curve.Curve, schema Schema) (map[int]*math.Zr, error) {
	out := make(map[int]*math.Zr, len(d.Range)+len(d.Set))
	for i, v := range d.Range {
		if i < 0 || i >= len(schema.Range) {
			return nil, fmt.Errorf("%w: disclosed range index %d", ErrSchema, i)
		}
		out[i] = rangeScalar(group, v)
	}
	for i, v := range d.Set {
		if i < 0 || i >= len(schema.Set) {
			return nil, fmt.Errorf("%w: disclosed set index %d", ErrSchema, i)
		}
		out[len(schema.Range)+i] = setScalar(group, v)
	}
	return out, nil
}

// Indexes returns the absolute indexes of the disclosed attributes in ascending order.
func (d Disclosure) Indexes(schema Schema) []int {
	out := make([]int, 0, len(d.Range)+len(d.Set))
	for i := range d.Range {
		out = append(out, i)
	}
	for i := range d.Set {
		out = append(out, len(schema.Range)+i)
	}
	sort.Ints(out)
	return out
}
