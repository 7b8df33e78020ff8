/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/di-sd-go/multikey"
)

// Signer makes ECDSA signatures in IEEE P1363 (r || s) form.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	hash       crypto.Hash
	keyType    kms.KeyType
}

// NewSigner creates a Signer from a raw private scalar. The curve is chosen
// from the scalar length: 32 bytes for P-256 (SHA-256), 48 bytes for P-384 (SHA-384).
func NewSigner(priv []byte) (*Signer, error) {
	name, err := multikey.PrivateKeyCurve(priv)
	if err != nil {
		return nil, err
	}

	var (
		ecdhCurve ecdh.Curve
		h         crypto.Hash
		keyType   kms.KeyType
	)

	switch name {
	case multikey.P384:
		ecdhCurve, h, keyType = ecdh.P384(), crypto.SHA384, kms.ECDSAP384TypeIEEEP1363
	default:
		ecdhCurve, h, keyType = ecdh.P256(), crypto.SHA256, kms.ECDSAP256TypeIEEEP1363
	}

	ecdhKey, err := ecdhCurve.NewPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("ecdsa signer: invalid private key: %w", err)
	}

	pub, err := multikey.ParsePublicKey(ecdhKey.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}

	return &Signer{
		privateKey: &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(priv)},
		hash:       h,
		keyType:    keyType,
	}, nil
}

// Sign signs a message.
func (es *Signer) Sign(msg []byte) ([]byte, error) {
	return signEcdsa(msg, es.privateKey, es.hash)
}

// PublicKey returns the compressed SEC1 public key.
func (es *Signer) PublicKey() []byte {
	return elliptic.MarshalCompressed(es.privateKey.Curve, es.privateKey.X, es.privateKey.Y)
}

// KeyType returns the kms key type of the signatures made by the signer.
func (es *Signer) KeyType() kms.KeyType {
	return es.keyType
}

// GenerateKeyPair creates a fresh key on the named curve and returns the raw private
// scalar and the compressed public key.
func GenerateKeyPair(curveName string) ([]byte, []byte, error) {
	curve := ecdh.P256()
	if curveName == multikey.P384 {
		curve = ecdh.P384()
	}

	key, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	pub, err := multikey.CompressPublicKey(key.PublicKey().Bytes())
	if err != nil {
		return nil, nil, err
	}

	return key.Bytes(), pub, nil
}

//nolint:gomnd
func signEcdsa(msg []byte, privateKey *ecdsa.PrivateKey, hash crypto.Hash) ([]byte, error) {
	hasher := hash.New()
	_, _ = hasher.Write(msg)
	hashed := hasher.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, privateKey, hashed)
	if err != nil {
		return nil, err
	}

	curveBits := privateKey.Curve.Params().BitSize

	keyBytes := curveBits / 8
	if curveBits%8 > 0 {
		keyBytes++
	}

	copyPadded := func(source []byte, size int) []byte {
		dest := make([]byte, size)
		copy(dest[size-len(source):], source)

		return dest
	}

	return append(copyPadded(r.Bytes(), keyBytes), copyPadded(s.Bytes(), keyBytes)...), nil
}
