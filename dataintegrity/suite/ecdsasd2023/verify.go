/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsasd2023

import (
	goecdsa "crypto/ecdsa"
	"errors"

	"github.com/trustbloc/di-sd-go/crypto-ext/pubkey"
	"github.com/trustbloc/di-sd-go/dataintegrity"
	"github.com/trustbloc/di-sd-go/dataintegrity/models"
	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives"
	"github.com/trustbloc/di-sd-go/multikey"
	"github.com/trustbloc/di-sd-go/util/json"
)

// VerifyBase checks the base proof embedded in doc against the issuer public key.
// It returns an error only for malformed input; any signature mismatch yields false.
func (s *Suite) VerifyBase(doc map[string]interface{}, publicKey []byte, opts *VerifyOptions) (bool, error) {
	proof, pub, verifier, err := s.prepareVerify(doc, publicKey, opts)
	if err != nil {
		return false, err
	}

	return s.verifyBase(json.CopyExcept(doc, proofKey), proof, pub, verifier)
}

// VerifyDerived checks the derived proof embedded in doc against the issuer public
// key. It returns an error only for malformed input; any signature mismatch yields false.
func (s *Suite) VerifyDerived(doc map[string]interface{}, publicKey []byte, opts *VerifyOptions) (bool, error) {
	proof, pub, verifier, err := s.prepareVerify(doc, publicKey, opts)
	if err != nil {
		return false, err
	}

	return s.verifyDerived(json.CopyExcept(doc, proofKey), proof, pub, verifier)
}

func (s *Suite) prepareVerify(doc map[string]interface{}, publicKey []byte,
	opts *VerifyOptions) (*models.Proof, *pubkey.PublicKey, Verifier, error) {
	if opts == nil {
		opts = &VerifyOptions{}
	}

	proof, err := proofFromDocument(doc)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = checkProof(proof, opts.Purpose); err != nil {
		return nil, nil, nil, err
	}

	pub, verifier, err := s.keyVerifier(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}

	return proof, pub, verifier, nil
}

func (s *Suite) verifyBase(doc map[string]interface{}, proof *models.Proof, pub *pubkey.PublicKey,
	verifier Verifier) (bool, error) {
	payload, err := decodeBaseProofValue(proof.ProofValue)
	if err != nil {
		return false, err
	}

	proofHash, err := s.proofConfigHash(doc[ldCtxKey], proof)
	if err != nil {
		return false, err
	}

	res, err := sdprimitives.CanonicalizeAndGroup(doc, sdprimitives.NewHMACLabeler(payload.HMACKey),
		map[string][]string{mandatoryGroup: payload.MandatoryPointers},
		sdprimitives.WithDocumentLoader(s.ldLoader))
	if err != nil {
		// a mandatory pointer that no longer resolves means the document changed
		if errors.Is(err, dataintegrity.ErrPointerResolution) {
			return false, nil
		}

		return false, err
	}

	group := res.Groups[mandatoryGroup]

	mandatory := make([]string, 0, len(group.Matching))
	for _, i := range group.MatchingIndexes() {
		mandatory = append(mandatory, group.Matching[i])
	}

	nonMandatory := make([]string, 0, len(group.NonMatching))
	for _, i := range group.NonMatchingIndexes() {
		nonMandatory = append(nonMandatory, group.NonMatching[i])
	}

	return s.verifySignatures(payload.BaseSignature, payload.PublicKey, payload.Signatures,
		proofHash, mandatory, nonMandatory, pub, verifier), nil
}

func (s *Suite) verifyDerived(doc map[string]interface{}, proof *models.Proof, pub *pubkey.PublicKey,
	verifier Verifier) (bool, error) {
	payload, err := decodeDerivedProofValue(proof.ProofValue)
	if err != nil {
		return false, err
	}

	labels, err := decompressLabelMap(payload.LabelMap)
	if err != nil {
		return false, err
	}

	proofHash, err := s.proofConfigHash(doc[ldCtxKey], proof)
	if err != nil {
		return false, err
	}

	statements, err := sdprimitives.CanonicalizeAndRelabel(doc, sdprimitives.NewLabelMapLabeler(labels),
		sdprimitives.WithDocumentLoader(s.ldLoader))
	if err != nil {
		if errors.Is(err, sdprimitives.ErrUnknownLabel) {
			return false, nil
		}

		return false, err
	}

	isMandatory := make(map[int]bool, len(payload.MandatoryIndexes))

	for _, i := range payload.MandatoryIndexes {
		if i < 0 || i >= len(statements) {
			return false, nil
		}

		isMandatory[i] = true
	}

	var mandatory, nonMandatory []string

	for i, statement := range statements {
		if isMandatory[i] {
			mandatory = append(mandatory, statement)
		} else {
			nonMandatory = append(nonMandatory, statement)
		}
	}

	return s.verifySignatures(payload.BaseSignature, payload.PublicKey, payload.Signatures,
		proofHash, mandatory, nonMandatory, pub, verifier), nil
}

// verifySignatures checks the issuer signature over the proof hash, ephemeral key
// and mandatory statements, then each statement signature against the ephemeral key.
func (s *Suite) verifySignatures(baseSignature, publicKey []byte, signatures [][]byte, proofHash []byte,
	mandatory, nonMandatory []string, pub *pubkey.PublicKey, verifier Verifier) bool {
	if len(signatures) != len(nonMandatory) {
		logger.Debugf("%d statement signatures for %d statements", len(signatures), len(nonMandatory))

		return false
	}

	if err := verifier.Verify(baseSignature, signatureBase(proofHash, publicKey, mandatory), pub); err != nil {
		logger.Debugf("base signature: %v", err)

		return false
	}

	ephemeral, err := multikey.TrimPrefix(publicKey)
	if err != nil || ephemeral.Private {
		return false
	}

	verify, err := s.statementVerifier(ephemeral.Bytes)
	if err != nil {
		return false
	}

	for i, statement := range nonMandatory {
		if err := verify(signatures[i], []byte(statement)); err != nil {
			logger.Debugf("statement %d signature: %v", i, err)

			return false
		}
	}

	return true
}

type keyedVerifier interface {
	VerifyWithKey(signature, msg []byte, key *goecdsa.PublicKey) error
}

// statementVerifier returns a check for signatures made with the ephemeral key. The
// key is parsed once when the configured verifier accepts parsed keys.
func (s *Suite) statementVerifier(ephemeralKey []byte) (func(signature, msg []byte) error, error) {
	pub, verifier, err := s.keyVerifier(ephemeralKey)
	if err != nil {
		return nil, err
	}

	kv, ok := verifier.(keyedVerifier)
	if !ok {
		return func(signature, msg []byte) error {
			return verifier.Verify(signature, msg, pub)
		}, nil
	}

	key, err := multikey.ParsePublicKey(ephemeralKey)
	if err != nil {
		return nil, err
	}

	return func(signature, msg []byte) error {
		return kv.VerifyWithKey(signature, msg, key)
	}, nil
}
