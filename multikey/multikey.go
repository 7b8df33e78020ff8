/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multikey encodes and decodes ECDSA keys in the Multikey format: a multicodec
// header followed by the key bytes, multibase (base58btc) encoded.
package multikey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/multiformats/go-multibase"
)

const (
	// P256 is the curve name of NIST P-256 keys.
	P256 = "P-256"
	// P384 is the curve name of NIST P-384 keys.
	P384 = "P-384"
)

var (
	p256PubPrefix  = []byte{0x80, 0x24}
	p384PubPrefix  = []byte{0x81, 0x24}
	p256PrivPrefix = []byte{0x86, 0x26}
	p384PrivPrefix = []byte{0x87, 0x26}

	// ErrUnsupportedKey is returned for key material of an unknown curve or length.
	ErrUnsupportedKey = errors.New("unsupported multikey")
)

// Key is a decoded multikey.
type Key struct {
	Curve   string
	Private bool
	Bytes   []byte
}

// Curve returns the elliptic curve for the given curve name.
func Curve(name string) (elliptic.Curve, error) {
	switch name {
	case P256:
		return elliptic.P256(), nil
	case P384:
		return elliptic.P384(), nil
	default:
		return nil, fmt.Errorf("%w: curve %q", ErrUnsupportedKey, name)
	}
}

// PublicKeyCurve detects the curve of a SEC1 encoded public key from its length.
func PublicKeyCurve(pub []byte) (string, error) {
	switch len(pub) {
	case 33, 65: //nolint:gomnd
		return P256, nil
	case 49, 97: //nolint:gomnd
		return P384, nil
	default:
		return "", fmt.Errorf("%w: public key length %d", ErrUnsupportedKey, len(pub))
	}
}

// PrivateKeyCurve detects the curve of a raw private scalar from its length.
func PrivateKeyCurve(priv []byte) (string, error) {
	switch len(priv) {
	case 32: //nolint:gomnd
		return P256, nil
	case 48: //nolint:gomnd
		return P384, nil
	default:
		return "", fmt.Errorf("%w: private key length %d", ErrUnsupportedKey, len(priv))
	}
}

// ParsePublicKey parses a compressed or uncompressed SEC1 point.
func ParsePublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	name, err := PublicKeyCurve(pub)
	if err != nil {
		return nil, err
	}

	curve, err := Curve(name)
	if err != nil {
		return nil, err
	}

	var x, y *big.Int

	if pub[0] == 0x04 { //nolint:gomnd
		x, y = elliptic.Unmarshal(curve, pub) //nolint:staticcheck
	} else {
		x, y = elliptic.UnmarshalCompressed(curve, pub)
	}

	if x == nil {
		return nil, fmt.Errorf("%w: invalid %s point", ErrUnsupportedKey, name)
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// CompressPublicKey returns the compressed SEC1 form of a public key.
func CompressPublicKey(pub []byte) ([]byte, error) {
	key, err := ParsePublicKey(pub)
	if err != nil {
		return nil, err
	}

	return elliptic.MarshalCompressed(key.Curve, key.X, key.Y), nil
}

// PrefixedPublicKey returns the multicodec prefixed compressed public key.
func PrefixedPublicKey(pub []byte) ([]byte, error) {
	name, err := PublicKeyCurve(pub)
	if err != nil {
		return nil, err
	}

	compressed, err := CompressPublicKey(pub)
	if err != nil {
		return nil, err
	}

	prefix := p256PubPrefix
	if name == P384 {
		prefix = p384PubPrefix
	}

	return append(append([]byte{}, prefix...), compressed...), nil
}

// PrefixedPrivateKey returns the multicodec prefixed private scalar.
func PrefixedPrivateKey(priv []byte) ([]byte, error) {
	name, err := PrivateKeyCurve(priv)
	if err != nil {
		return nil, err
	}

	prefix := p256PrivPrefix
	if name == P384 {
		prefix = p384PrivPrefix
	}

	return append(append([]byte{}, prefix...), priv...), nil
}

// TrimPrefix strips and interprets the multicodec header of prefixed key bytes.
func TrimPrefix(b []byte) (*Key, error) {
	if len(b) < 2 { //nolint:gomnd
		return nil, fmt.Errorf("%w: too short", ErrUnsupportedKey)
	}

	header, body := b[:2], b[2:]

	var key *Key

	switch {
	case bytes.Equal(header, p256PubPrefix):
		key = &Key{Curve: P256}
	case bytes.Equal(header, p384PubPrefix):
		key = &Key{Curve: P384}
	case bytes.Equal(header, p256PrivPrefix):
		key = &Key{Curve: P256, Private: true}
	case bytes.Equal(header, p384PrivPrefix):
		key = &Key{Curve: P384, Private: true}
	default:
		return nil, fmt.Errorf("%w: unknown header %x", ErrUnsupportedKey, header)
	}

	key.Bytes = append([]byte{}, body...)

	if key.Private {
		if name, err := PrivateKeyCurve(key.Bytes); err != nil || name != key.Curve {
			return nil, fmt.Errorf("%w: bad %s private key length", ErrUnsupportedKey, key.Curve)
		}

		return key, nil
	}

	if _, err := ParsePublicKey(key.Bytes); err != nil {
		return nil, err
	}

	return key, nil
}

// EncodePublicKey encodes a public key as a base58btc multikey string.
func EncodePublicKey(pub []byte) (string, error) {
	b, err := PrefixedPublicKey(pub)
	if err != nil {
		return "", err
	}

	return multibase.Encode(multibase.Base58BTC, b)
}

// EncodePrivateKey encodes a private scalar as a base58btc multikey string.
func EncodePrivateKey(priv []byte) (string, error) {
	b, err := PrefixedPrivateKey(priv)
	if err != nil {
		return "", err
	}

	return multibase.Encode(multibase.Base58BTC, b)
}

// Decode decodes a multibase multikey string.
func Decode(s string) (*Key, error) {
	_, b, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode multikey: %w", err)
	}

	return TrimPrefix(b)
}
