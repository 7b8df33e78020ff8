/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ecdsasd2023 implements the ecdsa-sd-2023 selective disclosure data
// integrity cryptographic suite: https://www.w3.org/TR/vc-di-ecdsa/#ecdsa-sd-2023
package ecdsasd2023

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/mitchellh/mapstructure"
	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/kms-go/doc/jose/jwk"
	"github.com/trustbloc/kms-go/doc/jose/jwk/jwksupport"
	"github.com/trustbloc/kms-go/spi/kms"
	wrapperapi "github.com/trustbloc/kms-go/wrapper/api"

	"github.com/trustbloc/di-sd-go/crypto-ext/pubkey"
	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/crypto-ext/verifiers/ecdsa"
	"github.com/trustbloc/di-sd-go/dataintegrity/models"
	"github.com/trustbloc/di-sd-go/dataintegrity/suite"
	"github.com/trustbloc/di-sd-go/ldloader"
	"github.com/trustbloc/di-sd-go/multikey"
)

const (
	// SuiteType "ecdsa-sd-2023" is the data integrity Type identifier for the suite
	// implementing selective disclosure ecdsa signatures.
	SuiteType = "ecdsa-sd-2023"

	// AssertionMethod is the proof purpose used when none is configured.
	AssertionMethod = "assertionMethod"

	ldCtxKey = "@context"
	proofKey = "proof"
)

var logger = log.New("di-sd-go/ecdsasd2023")

// SignerGetter returns a Signer, which must sign with the private key matching
// the public key provided in models.ProofOptions.VerificationMethod.
type SignerGetter func(pub *jwk.JWK) (Signer, error)

// WithStaticSigner sets the Suite to use a fixed Signer, with externally-chosen signing key.
func WithStaticSigner(signer Signer) SignerGetter {
	return func(*jwk.JWK) (Signer, error) {
		return signer, nil
	}
}

// WithKMSCryptoWrapper provides a SignerGetter using the kmscrypto wrapper.
//
// This SignerGetter assumes that the public key JWKs provided were received
// from the same kmscrypto.KMSCrypto implementation.
func WithKMSCryptoWrapper(kmsCrypto wrapperapi.KMSCryptoSigner) SignerGetter {
	return func(pub *jwk.JWK) (Signer, error) {
		return kmsCrypto.FixedKeySigner(pub)
	}
}

// A Signer is able to sign messages. The signer hashes the message itself.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
}

// A Verifier is able to verify messages.
type Verifier interface {
	// Verify will verify a signature for the given msg using a matching signature primitive in kh key handle of
	// a public key
	// returns:
	// 		error in case of errors or nil if signature verification was successful
	Verify(signature, msg []byte, pubKey *pubkey.PublicKey) error
}

// KeyPair is a raw EC key pair: a private scalar and a SEC1 public point,
// compressed or not. Private may be empty when signing goes through a SignerGetter.
type KeyPair struct {
	Private []byte
	Public  []byte
}

// SignOptions configures SignBase.
type SignOptions struct {
	// HMACKey labels blank nodes. A random 32 byte key is used when empty.
	HMACKey []byte
	// ProofKeyPair is the ephemeral P-256 key signing individual statements.
	// A fresh key pair is generated when nil. Its public key travels in every
	// derived proof, so presentations of one credential share it.
	ProofKeyPair *KeyPair
	// ProofConfig supplies created, verificationMethod, proofPurpose, domain and challenge.
	ProofConfig *models.ProofOptions
}

// DeriveOptions configures Derive.
type DeriveOptions struct {
	// StrictDisclosure makes Derive disclose only the given pointers and fail when
	// they leave out a mandatory statement, instead of adding the mandatory pointers.
	StrictDisclosure bool
}

// VerifyOptions configures VerifyBase and VerifyDerived.
type VerifyOptions struct {
	// Purpose is the expected proofPurpose. Not checked when empty.
	Purpose string
}

// Suite implements the ecdsa-sd-2023 data integrity cryptographic suite.
type Suite struct {
	ldLoader     ld.DocumentLoader
	p256Verifier Verifier
	p384Verifier Verifier
	signerGetter SignerGetter
}

// Options provides initialization options for Suite.
type Options struct {
	LDDocumentLoader ld.DocumentLoader
	P256Verifier     Verifier
	P384Verifier     Verifier
	SignerGetter     SignerGetter
}

// SuiteInitializer is the initializer for Suite.
type SuiteInitializer func() (suite.Suite, error)

// New constructs an initializer for Suite.
func New(options *Options) SuiteInitializer {
	return func() (suite.Suite, error) {
		return NewSuite(options), nil
	}
}

// NewSuite constructs a Suite. Without a document loader, contexts are fetched over
// HTTP and cached. Missing verifiers default to the ecdsa package ones, which
// accept only IEEE P1363 signatures.
func NewSuite(options *Options) *Suite {
	s := &Suite{
		ldLoader:     options.LDDocumentLoader,
		p256Verifier: options.P256Verifier,
		p384Verifier: options.P384Verifier,
		signerGetter: options.SignerGetter,
	}

	if s.ldLoader == nil {
		s.ldLoader = ldloader.New(ld.NewDefaultDocumentLoader(nil))
	}

	if s.p256Verifier == nil {
		s.p256Verifier = ecdsa.NewES256(ecdsa.P1363Only())
	}

	if s.p384Verifier == nil {
		s.p384Verifier = ecdsa.NewES384(ecdsa.P1363Only())
	}

	return s
}

type initializer SuiteInitializer

// Signer private, implements suite.SignerInitializer.
func (i initializer) Signer() (suite.Signer, error) {
	return i()
}

// Verifier private, implements suite.VerifierInitializer.
func (i initializer) Verifier() (suite.Verifier, error) {
	return i()
}

// Type private, implements suite.SignerInitializer and
// suite.VerifierInitializer.
func (i initializer) Type() []string {
	return []string{SuiteType}
}

// SignerInitializerOptions provides options for a SignerInitializer.
type SignerInitializerOptions struct {
	LDDocumentLoader ld.DocumentLoader
	SignerGetter     SignerGetter
}

// NewSignerInitializer returns a suite.SignerInitializer that initializes an
// ecdsa-sd-2023 signing Suite with the given SignerInitializerOptions.
func NewSignerInitializer(options *SignerInitializerOptions) suite.SignerInitializer {
	return initializer(New(&Options{
		LDDocumentLoader: options.LDDocumentLoader,
		SignerGetter:     options.SignerGetter,
	}))
}

// VerifierInitializerOptions provides options for a VerifierInitializer.
type VerifierInitializerOptions struct {
	LDDocumentLoader ld.DocumentLoader // required
	P256Verifier     Verifier          // optional
	P384Verifier     Verifier          // optional
}

// NewVerifierInitializer returns a suite.VerifierInitializer that initializes an
// ecdsa-sd-2023 verification Suite with the given VerifierInitializerOptions.
func NewVerifierInitializer(options *VerifierInitializerOptions) suite.VerifierInitializer {
	return initializer(New(&Options{
		LDDocumentLoader: options.LDDocumentLoader,
		P256Verifier:     options.P256Verifier,
		P384Verifier:     options.P384Verifier,
	}))
}

// CreateProof creates a base proof over doc. The issuer key comes from
// opts.VerificationMethod and opts.MandatoryPointers lists the statements every
// derived proof must disclose. A fresh HMAC key and ephemeral key pair are used.
func (s *Suite) CreateProof(doc []byte, opts *models.ProofOptions) (*models.Proof, error) {
	if opts.SuiteType == "" {
		opts.SuiteType = SuiteType
	}

	if opts.ProofType != models.DataIntegrityProof || opts.SuiteType != SuiteType {
		return nil, suite.ErrProofTransformation
	}

	docData := make(map[string]interface{})

	if err := json.Unmarshal(doc, &docData); err != nil {
		return nil, fmt.Errorf("ecdsa-sd-2023 suite expects JSON-LD payload: %w", err)
	}

	delete(docData, proofKey)

	if opts.VerificationMethod == nil {
		return nil, errors.New("verification method needed")
	}

	vmKey := opts.VerificationMethod.JSONWebKey()
	if vmKey == nil {
		return nil, errors.New("verification method needs JWK")
	}

	if s.signerGetter == nil {
		return nil, errors.New("ecdsa-sd-2023 suite has no signer")
	}

	signer, err := s.signerGetter(vmKey)
	if err != nil {
		return nil, err
	}

	if opts.VerificationMethodID == "" {
		opts.VerificationMethodID = opts.VerificationMethod.ID
	}

	return s.signBase(docData, signer, opts.MandatoryPointers, &SignOptions{ProofConfig: opts})
}

// VerifyProof verifies a base or a derived proof on doc against the key of
// opts.VerificationMethod. It returns suite.ErrInvalidProof when a signature does
// not match.
func (s *Suite) VerifyProof(doc []byte, proof *models.Proof, opts *models.ProofOptions) error {
	if opts.SuiteType == "" {
		opts.SuiteType = SuiteType
	}

	if opts.ProofType != models.DataIntegrityProof || opts.SuiteType != SuiteType {
		return suite.ErrProofTransformation
	}

	docData := make(map[string]interface{})

	if err := json.Unmarshal(doc, &docData); err != nil {
		return fmt.Errorf("ecdsa-sd-2023 suite expects JSON-LD payload: %w", err)
	}

	delete(docData, proofKey)

	if err := checkProof(proof, opts.Purpose); err != nil {
		return err
	}

	if opts.VerificationMethod == nil {
		return errors.New("verification method needed")
	}

	vmKey := opts.VerificationMethod.JSONWebKey()
	if vmKey == nil {
		return errors.New("verification method needs JWK")
	}

	pub, verifier, err := s.jwkVerifier(vmKey)
	if err != nil {
		return err
	}

	derived, err := isDerivedProofValue(proof.ProofValue)
	if err != nil {
		return err
	}

	var ok bool

	if derived {
		ok, err = s.verifyDerived(docData, proof, pub, verifier)
	} else {
		ok, err = s.verifyBase(docData, proof, pub, verifier)
	}

	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("failed to verify ecdsa-sd-2023 DI proof: %w", suite.ErrInvalidProof)
	}

	return nil
}

// RequiresCreated returns false, as the ecdsa-sd-2023 cryptographic suite does not
// require the use of the models.Proof.Created field.
func (s *Suite) RequiresCreated() bool {
	return false
}

// keyVerifier picks the verifier for raw public key bytes by their length.
func (s *Suite) keyVerifier(pub []byte) (*pubkey.PublicKey, Verifier, error) {
	curve, err := multikey.PublicKeyCurve(pub)
	if err != nil {
		return nil, nil, err
	}

	if curve == multikey.P384 {
		return pubkey.FromBytes(kms.ECDSAP384TypeIEEEP1363, pub), s.p384Verifier, nil
	}

	return pubkey.FromBytes(kms.ECDSAP256TypeIEEEP1363, pub), s.p256Verifier, nil
}

func (s *Suite) jwkVerifier(key *jwk.JWK) (*pubkey.PublicKey, Verifier, error) {
	switch key.Crv {
	case multikey.P256:
		return pubkey.FromJWK(kms.ECDSAP256TypeIEEEP1363, key), s.p256Verifier, nil
	case multikey.P384:
		return pubkey.FromJWK(kms.ECDSAP384TypeIEEEP1363, key), s.p384Verifier, nil
	default:
		return nil, nil, errors.New("unsupported ECDSA curve")
	}
}

// issuerSigner signs with the private key of keyPair, or through the suite's
// SignerGetter when only the public key is known.
func (s *Suite) issuerSigner(keyPair *KeyPair) (Signer, error) {
	if keyPair == nil {
		return nil, errors.New("key pair needed")
	}

	if len(keyPair.Private) > 0 {
		return ecdsasigner.NewSigner(keyPair.Private)
	}

	if s.signerGetter == nil {
		return nil, errors.New("key pair has no private key and suite has no signer")
	}

	ecPub, err := multikey.ParsePublicKey(keyPair.Public)
	if err != nil {
		return nil, err
	}

	key, err := jwksupport.JWKFromKey(ecPub)
	if err != nil {
		return nil, fmt.Errorf("create JWK from public key: %w", err)
	}

	return s.signerGetter(key)
}

// checkProof rejects proofs of another type, suite or purpose.
func checkProof(proof *models.Proof, purpose string) error {
	if proof.Type != models.DataIntegrityProof || proof.CryptoSuite != SuiteType {
		return fmt.Errorf("%w: proof is %s/%s", suite.ErrProofTransformation, proof.Type, proof.CryptoSuite)
	}

	if purpose != "" && proof.ProofPurpose != purpose {
		return fmt.Errorf("%w: proof purpose %q, expected %q",
			suite.ErrProofTransformation, proof.ProofPurpose, purpose)
	}

	return nil
}

// proofFromDocument reads the embedded proof of doc.
func proofFromDocument(doc map[string]interface{}) (*models.Proof, error) {
	raw, ok := doc[proofKey]
	if !ok {
		return nil, errors.New("document has no proof")
	}

	if proofs, isArr := raw.([]interface{}); isArr {
		if len(proofs) != 1 {
			return nil, fmt.Errorf("expected a single proof, got %d", len(proofs))
		}

		raw = proofs[0]
	}

	proof := &models.Proof{}

	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  proof,
		TagName: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("proof decoder: %w", err)
	}

	if err = d.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", suite.ErrProofTransformation, err)
	}

	return proof, nil
}
