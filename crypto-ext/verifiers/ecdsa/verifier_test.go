/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa_test

import (
	goecdsa "crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose/jwk/jwksupport"
	kmsapi "github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/di-sd-go/crypto-ext/pubkey"
	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/crypto-ext/verifiers/ecdsa"
	"github.com/trustbloc/di-sd-go/multikey"
)

func TestNewECDSAES256SignatureVerifier(t *testing.T) {
	msg := []byte("test message")

	t.Run("happy path", func(t *testing.T) {
		tests := []struct {
			sVerifier *ecdsa.Verifier
			curve     string
			keyType   kmsapi.KeyType
		}{
			{
				sVerifier: ecdsa.NewES256(),
				keyType:   kmsapi.ECDSAP256TypeIEEEP1363,
				curve:     multikey.P256,
			},
			{
				sVerifier: ecdsa.NewES384(),
				keyType:   kmsapi.ECDSAP384TypeIEEEP1363,
				curve:     multikey.P384,
			},
		}

		for _, test := range tests {
			tc := test
			t.Run(tc.curve, func(t *testing.T) {
				priv, pub, err := ecdsasigner.GenerateKeyPair(tc.curve)
				require.NoError(t, err)

				signer, err := ecdsasigner.NewSigner(priv)
				require.NoError(t, err)

				msgSig, err := signer.Sign(msg)
				require.NoError(t, err)

				pubKey, err := multikey.ParsePublicKey(pub)
				require.NoError(t, err)

				uncompressed := elliptic.Marshal(pubKey.Curve, pubKey.X, pubKey.Y) //nolint:staticcheck

				for _, keyBytes := range [][]byte{pub, uncompressed} {
					err = tc.sVerifier.Verify(msgSig, msg, &pubkey.PublicKey{
						Type:     tc.keyType,
						BytesKey: &pubkey.BytesKey{Bytes: keyBytes},
					})
					require.NoError(t, err)
				}

				pubJWK, err := jwksupport.JWKFromKey(pubKey)
				require.NoError(t, err)

				err = tc.sVerifier.Verify(msgSig, msg, &pubkey.PublicKey{Type: tc.keyType, JWK: pubJWK})
				require.NoError(t, err)
			})
		}
	})

	v := ecdsa.NewES256()
	require.NotNil(t, v)

	priv, pub, err := ecdsasigner.GenerateKeyPair(multikey.P256)
	require.NoError(t, err)

	signer, err := ecdsasigner.NewSigner(priv)
	require.NoError(t, err)

	msgSig, err := signer.Sign(msg)
	require.NoError(t, err)

	pubKey := &pubkey.PublicKey{Type: kmsapi.ECDSAP256TypeIEEEP1363, BytesKey: &pubkey.BytesKey{Bytes: pub}}

	t.Run("invalid public key", func(t *testing.T) {
		err = v.Verify(msgSig, msg, &pubkey.PublicKey{
			Type:     kmsapi.AES256GCM,
			BytesKey: &pubkey.BytesKey{Bytes: []byte("invalid-key")},
		})
		require.Error(t, err)
		require.EqualError(t, err, "unsupported key type AES256GCM")
	})

	t.Run("invalid public key bytes", func(t *testing.T) {
		err = v.Verify(msgSig, msg, &pubkey.PublicKey{
			Type:     kmsapi.ECDSAP256TypeIEEEP1363,
			BytesKey: &pubkey.BytesKey{Bytes: []byte("invalid-key")},
		})
		require.Error(t, err)
		require.ErrorContains(t, err, "invalid public key bytes")
	})

	t.Run("invalid public key type", func(t *testing.T) {
		edPub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		edJWK, err := jwksupport.JWKFromKey(edPub)
		require.NoError(t, err)

		err = v.Verify(msgSig, msg, &pubkey.PublicKey{
			Type: kmsapi.ECDSAP256TypeIEEEP1363,
			JWK:  edJWK,
		})
		require.Error(t, err)
		require.EqualError(t, err, "ecdsa: invalid public key type")
	})

	t.Run("invalid signature", func(t *testing.T) {
		verifyError := v.Verify([]byte("signature of invalid size"), msg, pubKey)
		require.Error(t, verifyError)
		require.EqualError(t, verifyError, "ecdsa: invalid signature size")

		emptySig := make([]byte, 64)
		verifyError = v.Verify(emptySig, msg, pubKey)
		require.ErrorIs(t, verifyError, ecdsa.ErrInvalidSignature)
	})

	t.Run("missing key material", func(t *testing.T) {
		err = v.Verify(msgSig, msg, &pubkey.PublicKey{Type: kmsapi.ECDSAP256TypeIEEEP1363})
		require.ErrorContains(t, err, "neither JWK nor bytes")
	})
}

func TestVerifier_P1363Only(t *testing.T) {
	msg := []byte("test message")

	priv, err := goecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	digest := sha256.Sum256(msg)

	derSig, err := goecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)

	require.NoError(t, ecdsa.NewES256().VerifyWithKey(derSig, msg, &priv.PublicKey))

	err = ecdsa.NewES256(ecdsa.P1363Only()).VerifyWithKey(derSig, msg, &priv.PublicKey)
	require.EqualError(t, err, "ecdsa: invalid signature size")

	err = ecdsa.NewES256().VerifyWithKey(append(derSig, 0), msg, &priv.PublicKey)
	require.ErrorContains(t, err, "trailing data")
}

func TestVerifier_VerifyWithKey(t *testing.T) {
	msg := []byte("test message")

	priv, pub, err := ecdsasigner.GenerateKeyPair(multikey.P384)
	require.NoError(t, err)

	signer, err := ecdsasigner.NewSigner(priv)
	require.NoError(t, err)

	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	v := ecdsa.NewES384(ecdsa.P1363Only())

	key, err := v.PublicKey(&pubkey.PublicKey{
		Type:     kmsapi.ECDSAP384TypeIEEEP1363,
		BytesKey: &pubkey.BytesKey{Bytes: pub},
	})
	require.NoError(t, err)

	require.NoError(t, v.VerifyWithKey(sig, msg, key))
	require.ErrorIs(t, v.VerifyWithKey(sig, []byte("other"), key), ecdsa.ErrInvalidSignature)

	err = ecdsa.NewES256().VerifyWithKey(sig, msg, key)
	require.ErrorContains(t, err, "another curve")
}
