// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package transport defines the request/response channel a protocol machine drives.
package transport

import (
	"errors"
	"fmt"
)

// Transport is the minimal command set used by a protocol machine.
// Every call blocks until the command completed or failed.
type Transport interface {
	Open() error
	Close() error
	Put(data []byte) error
	// Get returns the next payload. maxLength <= 0 means no limit.
	Get(maxLength int) ([]byte, error)
	Select(aid []byte) error
}

// Code is an ISO 7816 style status word.
type Code uint16

const (
	CodeOK             Code = 0x9000
	CodeWrongLength    Code = 0x6700
	CodeNotOpen        Code = 0x6985
	CodeNotFound       Code = 0x6A82
	CodeNoData         Code = 0x6A88
	CodeTimeout        Code = 0x6F01
	CodeClosed         Code = 0x6F02
	CodeUnknown        Code = 0x6F00
	CodeInvalidCommand Code = 0x6D00
)

func (c Code) String() string {
	return fmt.Sprintf("%04X", uint16(c))
}

// Error is a failed transport command.
type Error struct {
	Op   string
	Code Code
	Err  error
}

// Error implement error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport: %s failed with %s", e.Op, e.Code)
	}
	return fmt.Sprintf("transport: %s failed with %s: %v", e.Op, e.Code, e.Err)
}

// Unwrap implement errors.Wrapper.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error.
func NewError(op string, code Code, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// CodeOf extracts the status word carried by err.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Code
	}
	return CodeUnknown
}
