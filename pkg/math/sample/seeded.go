// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package sample

import (
	"errors"
	"fmt"
	"io"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github.com/zeebo/blake3"
)

// seedContext separates the seeded streams from every other blake3 use in the module.
const seedContext = "ppets 2023-06 seeded randomness v1"

var ErrInvalidMnemonic = errors.New("sample: invalid mnemonic")

// NewMnemonic creates a fresh 128-bit BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Seed turns a BIP-39 mnemonic into a 64 byte seed.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// NewSeededReader returns a deterministic stream for the child index of seed.
//
// The stream is the blake3 XOF keyed with the hardened BIP-32 child key m/index'.
// It must only be used for reproducible test and benchmark configurations.
func NewSeededReader(seed []byte, index uint32) (io.Reader, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("sample: master key: %w", err)
	}
	child, err := master.NewChildKey(bip32.FirstHardenedChild + index)
	if err != nil {
		return nil, fmt.Errorf("sample: child key %d: %w", index, err)
	}
	h := blake3.NewDeriveKey(seedContext)
	_, _ = h.Write(child.Key)
	return h.Digest(), nil
}

// MnemonicReader is Seed followed by NewSeededReader.
func MnemonicReader(mnemonic string, index uint32) (io.Reader, error) {
	seed, err := Seed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	return NewSeededReader(seed, index)
}
