// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

import (
	"io"
	"sort"
	"strings"
)

// ID identifies an actor.
type ID string

// WriteTo makes ID implement the io.WriterTo interface.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	if id == "" {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write([]byte(id))
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (ID) Domain() string {
	return "ID"
}

// Role is the part an actor plays in a run.
type Role uint8

const (
	// Any marks loop control steps executed by every machine.
	Any Role = iota
	CentralAuthority
	Seller
	User
	Validator
	Police
)

var roleNames = map[Role]string{
	Any:              "any",
	CentralAuthority: "central-authority",
	Seller:           "seller",
	User:             "user",
	Validator:        "validator",
	Police:           "police",
}

// AllRoles lists the concrete roles in a stable order.
var AllRoles = []Role{CentralAuthority, Seller, User, Validator, Police}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// DefaultID is the identity given to the actor playing r when none is configured.
func (r Role) DefaultID() ID {
	return ID(strings.ToUpper(r.String()))
}

// RoleSet is a set of roles played by one side of a run.
type RoleSet map[Role]bool

// NewRoleSet creates a RoleSet containing roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = true
	}
	return s
}

// Contains reports whether r is played locally. Any is always local.
func (s RoleSet) Contains(r Role) bool {
	return r == Any || s[r]
}

// Sorted returns the roles of s in ascending order.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r, ok := range s {
		if ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
