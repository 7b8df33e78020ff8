/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/di-sd-go/crypto-ext/pubkey"
	ecdsaverifier "github.com/trustbloc/di-sd-go/crypto-ext/verifiers/ecdsa"
	"github.com/trustbloc/di-sd-go/multikey"
)

func TestSigner(t *testing.T) {
	msg := []byte("_:u2IE-HtO6PyHQsGnuqhO1mX6V7RkRREAF0T0xSLSfrPM <http://schema.org/name> \"x\" .\n")

	t.Run("P-256", func(t *testing.T) {
		priv, pub, err := GenerateKeyPair(multikey.P256)
		require.NoError(t, err)
		require.Len(t, priv, 32)
		require.Len(t, pub, 33)

		signer, err := NewSigner(priv)
		require.NoError(t, err)
		require.Equal(t, pub, signer.PublicKey())
		require.Equal(t, kms.ECDSAP256TypeIEEEP1363, signer.KeyType())

		sig, err := signer.Sign(msg)
		require.NoError(t, err)
		require.Len(t, sig, 64)

		pk := &pubkey.PublicKey{Type: signer.KeyType(), BytesKey: &pubkey.BytesKey{Bytes: pub}}
		require.NoError(t, ecdsaverifier.NewES256().Verify(sig, msg, pk))
		require.Error(t, ecdsaverifier.NewES256().Verify(sig, []byte("other"), pk))
	})

	t.Run("P-384", func(t *testing.T) {
		priv, pub, err := GenerateKeyPair(multikey.P384)
		require.NoError(t, err)
		require.Len(t, priv, 48)

		signer, err := NewSigner(priv)
		require.NoError(t, err)

		sig, err := signer.Sign(msg)
		require.NoError(t, err)
		require.Len(t, sig, 96)

		pk := &pubkey.PublicKey{Type: signer.KeyType(), BytesKey: &pubkey.BytesKey{Bytes: pub}}
		require.NoError(t, ecdsaverifier.NewES384().Verify(sig, msg, pk))
	})

	t.Run("invalid private key", func(t *testing.T) {
		_, err := NewSigner([]byte{1, 2, 3})
		require.ErrorIs(t, err, multikey.ErrUnsupportedKey)

		_, err = NewSigner(make([]byte, 32))
		require.Error(t, err)
	})
}
