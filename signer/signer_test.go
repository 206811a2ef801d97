package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "tag volcano eight thank tide danger coast health above argue embrace heavy"

func TestSignDigestRecoverable(t *testing.T) {
	s, err := NewHotWalletSigner(testMnemonic)
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("celo withdraw payload"))
	sig, err := s.SignDigest(digest)
	require.NoError(t, err)

	assert.LessOrEqual(t, sig.YParity, uint64(1))

	raw := make([]byte, 65)
	copy(raw[32-len(sig.R.Bytes()):32], sig.R.Bytes())
	copy(raw[64-len(sig.S.Bytes()):64], sig.S.Bytes())
	raw[64] = byte(sig.YParity)

	pubKey, err := crypto.SigToPub(digest[:], raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pubKey))
}

func TestNewHotWalletSignerEmptyMnemonic(t *testing.T) {
	_, err := NewHotWalletSigner("")
	assert.Error(t, err)
}
