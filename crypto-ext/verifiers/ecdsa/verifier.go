/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ecdsa verifies ECDSA signatures over P-256 and P-384 for keys
// given as SEC1 points (compressed or not) or as JWKs.
package ecdsa

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/di-sd-go/crypto-ext/pubkey"
)

const (
	p256KeySize = 32
	p384KeySize = 48
)

// ErrInvalidSignature is returned when a well-formed signature does not match.
var ErrInvalidSignature = errors.New("ecdsa: invalid signature")

// Verifier verifies elliptic curve signatures in IEEE P1363 (r || s) form and,
// unless created with P1363Only, in ASN.1 DER form.
type Verifier struct {
	curve     elliptic.Curve
	keySize   int
	hash      crypto.Hash
	keyTypes  []kms.KeyType
	p1363Only bool
}

// Opt configures a Verifier.
type Opt func(v *Verifier)

// P1363Only rejects ASN.1 DER encoded signatures.
func P1363Only() Opt {
	return func(v *Verifier) {
		v.p1363Only = true
	}
}

func newVerifier(curve elliptic.Curve, keySize int, hash crypto.Hash, keyTypes []kms.KeyType,
	opts []Opt) *Verifier {
	v := &Verifier{
		curve:    curve,
		keySize:  keySize,
		hash:     hash,
		keyTypes: keyTypes,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// NewES256 creates a verifier for ECDSA P-256 with SHA-256.
func NewES256(opts ...Opt) *Verifier {
	return newVerifier(elliptic.P256(), p256KeySize, crypto.SHA256,
		[]kms.KeyType{kms.ECDSAP256TypeIEEEP1363, kms.ECDSAP256TypeDER}, opts)
}

// NewES384 creates a verifier for ECDSA P-384 with SHA-384.
func NewES384(opts ...Opt) *Verifier {
	return newVerifier(elliptic.P384(), p384KeySize, crypto.SHA384,
		[]kms.KeyType{kms.ECDSAP384TypeIEEEP1363, kms.ECDSAP384TypeDER}, opts)
}

// SupportedKeyType checks if verifier supports given key.
func (v *Verifier) SupportedKeyType(keyType kms.KeyType) bool {
	return slices.Contains(v.keyTypes, keyType)
}

// Verify verifies signature over msg. The message is hashed with the curve's hash.
func (v *Verifier) Verify(signature, msg []byte, pubKey *pubkey.PublicKey) error {
	key, err := v.PublicKey(pubKey)
	if err != nil {
		return err
	}

	return v.VerifyWithKey(signature, msg, key)
}

// VerifyWithKey verifies signature over msg with an already parsed key, which lets
// callers checking many signatures under one key parse it once.
func (v *Verifier) VerifyWithKey(signature, msg []byte, key *ecdsa.PublicKey) error {
	if key.Curve != v.curve {
		return errors.New("ecdsa: key is on another curve")
	}

	r, s, err := v.decodeSignature(signature)
	if err != nil {
		return err
	}

	hasher := v.hash.New()

	if _, err = hasher.Write(msg); err != nil {
		return errors.New("ecdsa: hash error")
	}

	if !ecdsa.Verify(key, hasher.Sum(nil), r, s) {
		return ErrInvalidSignature
	}

	return nil
}

// PublicKey resolves pubKey to an ECDSA key on the verifier's curve.
func (v *Verifier) PublicKey(pubKey *pubkey.PublicKey) (*ecdsa.PublicKey, error) {
	if !v.SupportedKeyType(pubKey.Type) {
		return nil, fmt.Errorf("unsupported key type %s", pubKey.Type)
	}

	if pubKey.JWK != nil {
		key, ok := pubKey.JWK.Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("ecdsa: invalid public key type")
		}

		return key, nil
	}

	if pubKey.BytesKey == nil {
		return nil, errors.New("ecdsa: public key has neither JWK nor bytes")
	}

	key, err := v.parsePoint(pubKey.BytesKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: create public key from bytes: %w", err)
	}

	return key, nil
}

// decodeSignature splits a P1363 signature, or parses a DER one when it is longer.
func (v *Verifier) decodeSignature(signature []byte) (*big.Int, *big.Int, error) {
	switch {
	case len(signature) == 2*v.keySize:
		return new(big.Int).SetBytes(signature[:v.keySize]), new(big.Int).SetBytes(signature[v.keySize:]), nil
	case len(signature) > 2*v.keySize && !v.p1363Only:
		var esig struct {
			R, S *big.Int
		}

		rest, err := asn1.Unmarshal(signature, &esig)
		if err != nil {
			return nil, nil, fmt.Errorf("ecdsa: DER signature: %w", err)
		}

		if len(rest) != 0 {
			return nil, nil, errors.New("ecdsa: trailing data after DER signature")
		}

		return esig.R, esig.S, nil
	default:
		return nil, nil, errors.New("ecdsa: invalid signature size")
	}
}

// parsePoint accepts SEC1 points in compressed or uncompressed form.
func (v *Verifier) parsePoint(point []byte) (*ecdsa.PublicKey, error) {
	var x, y *big.Int

	switch len(point) {
	case 1 + v.keySize:
		x, y = elliptic.UnmarshalCompressed(v.curve, point)
	case 1 + 2*v.keySize:
		x, y = elliptic.Unmarshal(v.curve, point) //nolint:staticcheck
	}

	if x == nil {
		return nil, errors.New("invalid public key bytes")
	}

	return &ecdsa.PublicKey{Curve: v.curve, X: x, Y: y}, nil
}
