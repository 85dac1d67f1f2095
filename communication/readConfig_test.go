// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package communication

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConnConfig("../config/connConfig.json")
	require.NoError(t, err)
	assert.Equal(t, "both", cfg.Side)
	assert.Equal(t, "ppets-abc", cfg.Variant)
	assert.Equal(t, []string{"false", "4", "128", "false"}, cfg.Params)
	assert.Equal(t, 30*time.Second, cfg.Timeout())

	trust, err := cfg.Trust()
	require.NoError(t, err)
	assert.Nil(t, trust)

	_, err = LoadConnConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrustKey(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	cfg := LocalConfig{TrustKey: hex.EncodeToString(key.PubKey().SerializeCompressed())}
	trust, err := cfg.Trust()
	require.NoError(t, err)
	assert.True(t, trust.IsEqual(key.PubKey()))

	cfg.TrustKey = "zz"
	_, err = cfg.Trust()
	assert.Error(t, err)
}

func TestBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connConfig.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"side": 3`), 0o600))
	_, err := LoadConnConfig(path)
	assert.Error(t, err)
}
