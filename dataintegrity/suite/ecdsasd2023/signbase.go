/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsasd2023

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/dataintegrity/models"
	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives"
	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives/rdfc"
	"github.com/trustbloc/di-sd-go/multikey"
	"github.com/trustbloc/di-sd-go/util/json"
)

const (
	hmacKeySize    = 32
	mandatoryGroup = "mandatory"
	selectiveGroup = "selective"
	combinedGroup  = "combined"
)

// SignBase signs doc with the issuer keyPair and returns a copy of doc carrying a
// base proof. Statements selected by mandatoryPointers are covered by the issuer
// signature; every other statement is signed individually with an ephemeral key so
// that a holder can later disclose it selectively.
func (s *Suite) SignBase(doc map[string]interface{}, keyPair *KeyPair, mandatoryPointers []string,
	opts *SignOptions) (map[string]interface{}, error) {
	if opts == nil {
		opts = &SignOptions{}
	}

	signer, err := s.issuerSigner(keyPair)
	if err != nil {
		return nil, err
	}

	proofConfig := &models.ProofOptions{}
	if opts.ProofConfig != nil {
		c := *opts.ProofConfig
		proofConfig = &c
	}

	if proofConfig.VerificationMethodID == "" {
		pub := keyPair.Public
		if p, ok := signer.(interface{ PublicKey() []byte }); ok && len(pub) == 0 {
			pub = p.PublicKey()
		}

		vm, err := didKeyVerificationMethod(pub)
		if err != nil {
			return nil, err
		}

		proofConfig.VerificationMethodID = vm
	}

	proof, err := s.signBase(doc, signer, mandatoryPointers, &SignOptions{
		HMACKey:      opts.HMACKey,
		ProofKeyPair: opts.ProofKeyPair,
		ProofConfig:  proofConfig,
	})
	if err != nil {
		return nil, err
	}

	return withProof(doc, proof)
}

func (s *Suite) signBase(doc map[string]interface{}, signer Signer, mandatoryPointers []string,
	opts *SignOptions) (*models.Proof, error) {
	hmacKey := opts.HMACKey
	if len(hmacKey) == 0 {
		hmacKey = make([]byte, hmacKeySize)

		if _, err := rand.Read(hmacKey); err != nil {
			return nil, fmt.Errorf("generate HMAC key: %w", err)
		}
	}

	proofSigner, err := ephemeralSigner(opts.ProofKeyPair)
	if err != nil {
		return nil, err
	}

	proof := newProof(opts.ProofConfig)

	proofHash, err := s.proofConfigHash(doc[ldCtxKey], proof)
	if err != nil {
		return nil, err
	}

	res, err := sdprimitives.CanonicalizeAndGroup(json.CopyExcept(doc, proofKey),
		sdprimitives.NewHMACLabeler(hmacKey),
		map[string][]string{mandatoryGroup: mandatoryPointers},
		sdprimitives.WithDocumentLoader(s.ldLoader))
	if err != nil {
		return nil, err
	}

	group := res.Groups[mandatoryGroup]

	mandatory := make([]string, 0, len(group.Matching))
	for _, i := range group.MatchingIndexes() {
		mandatory = append(mandatory, group.Matching[i])
	}

	publicKey, err := multikey.PrefixedPublicKey(proofSigner.PublicKey())
	if err != nil {
		return nil, err
	}

	baseSignature, err := signer.Sign(signatureBase(proofHash, publicKey, mandatory))
	if err != nil {
		return nil, fmt.Errorf("sign base: %w", err)
	}

	signatures := make([][]byte, 0, len(group.NonMatching))

	for _, i := range group.NonMatchingIndexes() {
		sig, err := proofSigner.Sign([]byte(group.NonMatching[i]))
		if err != nil {
			return nil, fmt.Errorf("sign statement %d: %w", i, err)
		}

		signatures = append(signatures, sig)
	}

	proof.ProofValue, err = encodeBaseProofValue(&basePayload{
		BaseSignature:     baseSignature,
		PublicKey:         publicKey,
		HMACKey:           hmacKey,
		Signatures:        signatures,
		MandatoryPointers: mandatoryPointers,
	})
	if err != nil {
		return nil, err
	}

	return proof, nil
}

func ephemeralSigner(keyPair *KeyPair) (*ecdsasigner.Signer, error) {
	if keyPair != nil && len(keyPair.Private) > 0 {
		return ecdsasigner.NewSigner(keyPair.Private)
	}

	priv, _, err := ecdsasigner.GenerateKeyPair(multikey.P256)
	if err != nil {
		return nil, fmt.Errorf("generate proof key pair: %w", err)
	}

	return ecdsasigner.NewSigner(priv)
}

func newProof(opts *models.ProofOptions) *models.Proof {
	created := opts.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	purpose := opts.Purpose
	if purpose == "" {
		purpose = AssertionMethod
	}

	return &models.Proof{
		Type:               models.DataIntegrityProof,
		CryptoSuite:        SuiteType,
		ProofPurpose:       purpose,
		VerificationMethod: opts.VerificationMethodID,
		Created:            created.Format(models.DateTimeFormat),
		Domain:             opts.Domain,
		Challenge:          opts.Challenge,
	}
}

// proofConfigHash hashes the canonical form of the proof without its value.
func (s *Suite) proofConfigHash(docCtx interface{}, proof *models.Proof) ([]byte, error) {
	config := map[string]interface{}{
		ldCtxKey:             json.DeepCopy(docCtx),
		"type":               proof.Type,
		"cryptosuite":        proof.CryptoSuite,
		"verificationMethod": proof.VerificationMethod,
		"proofPurpose":       proof.ProofPurpose,
	}

	if proof.Created != "" {
		config["created"] = proof.Created
	}

	if proof.Challenge != "" {
		config["challenge"] = proof.Challenge
	}

	if proof.Domain != "" {
		config["domain"] = proof.Domain
	}

	canonical, err := rdfc.Canonicalize(config, s.ldLoader)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing proof configuration: %w", err)
	}

	h := sha256.Sum256([]byte(strings.Join(canonical, "")))

	return h[:], nil
}

// signatureBase is what the issuer signs: the proof configuration hash, the
// ephemeral multikey and the hash of the mandatory statements.
func signatureBase(proofHash, publicKey []byte, mandatory []string) []byte {
	mandatoryHash := sha256.Sum256([]byte(strings.Join(mandatory, "")))

	base := make([]byte, 0, len(proofHash)+len(publicKey)+len(mandatoryHash))
	base = append(base, proofHash...)
	base = append(base, publicKey...)

	return append(base, mandatoryHash[:]...)
}

func didKeyVerificationMethod(pub []byte) (string, error) {
	enc, err := multikey.EncodePublicKey(pub)
	if err != nil {
		return "", err
	}

	return "did:key:" + enc + "#" + enc, nil
}

func withProof(doc map[string]interface{}, proof *models.Proof) (map[string]interface{}, error) {
	proofMap, err := json.ToMap(proof)
	if err != nil {
		return nil, err
	}

	signed := json.DeepCopyObj(doc)
	signed[proofKey] = proofMap

	return signed, nil
}
