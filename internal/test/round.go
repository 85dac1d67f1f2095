// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package test

// Rule selects envelopes by their elements and rewrites them.
type Rule struct {
	Match  func(elements [][]byte) bool
	Modify func(elements [][]byte) [][]byte
}

// Count matches envelopes of exactly n elements.
func Count(n int) func([][]byte) bool {
	return func(elements [][]byte) bool { return len(elements) == n }
}

// Swap exchanges elements i and j.
func Swap(match func([][]byte) bool, i, j int) Rule {
	return Rule{Match: match, Modify: func(elements [][]byte) [][]byte {
		out := clone(elements)
		out[i], out[j] = out[j], out[i]
		return out
	}}
}

// FlipByte inverts the last byte of element i.
func FlipByte(match func([][]byte) bool, i int) Rule {
	return Rule{Match: match, Modify: func(elements [][]byte) [][]byte {
		out := clone(elements)
		e := append([]byte(nil), out[i]...)
		if len(e) > 0 {
			e[len(e)-1] ^= 0xFF
		}
		out[i] = e
		return out
	}}
}

// Replace sets element i to value.
func Replace(match func([][]byte) bool, i int, value []byte) Rule {
	return Rule{Match: match, Modify: func(elements [][]byte) [][]byte {
		out := clone(elements)
		out[i] = value
		return out
	}}
}

func clone(elements [][]byte) [][]byte {
	return append([][]byte(nil), elements...)
}
