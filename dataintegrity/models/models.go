/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"time"

	"github.com/trustbloc/did-go/doc/did"
)

// VerificationMethod implements the data integrity verification method model:
// https://www.w3.org/TR/vc-data-integrity/#verification-methods
type VerificationMethod = did.VerificationMethod

// Proof implements the data integrity proof model:
// https://www.w3.org/TR/vc-data-integrity/#proofs
type Proof struct {
	ID                 string `json:"id,omitempty"`
	Type               string `json:"type"`
	CryptoSuite        string `json:"cryptosuite,omitempty"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	Created            string `json:"created,omitempty"`
	Domain             string `json:"domain,omitempty"`
	Challenge          string `json:"challenge,omitempty"`
	ProofValue         string `json:"proofValue"`
	PreviousProof      string `json:"previousProof,omitempty"`
}

// ProofOptions provides options for signing or verifying a data integrity proof.
type ProofOptions struct {
	Purpose              string
	VerificationMethodID string
	VerificationMethod   *VerificationMethod
	ProofType            string
	SuiteType            string
	Domain               string
	Challenge            string
	Created              time.Time

	// MandatoryPointers lists the JSON pointers an issuer marks as always disclosed.
	MandatoryPointers []string
}

const (
	// DataIntegrityProof is the type property on proofs created using data
	// integrity cryptographic suites.
	DataIntegrityProof = "DataIntegrityProof"

	// DateTimeFormat is the xsd:dateTime profile used for proof timestamps,
	// which matches RFC3339.
	// https://www.w3.org/TR/xmlschema11-2/#dateTime
	DateTimeFormat = time.RFC3339
)
