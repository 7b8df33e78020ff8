/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dataintegrity holds the error kinds shared by the selective disclosure
// primitives and the ecdsa-sd-2023 cryptographic suite.
package dataintegrity

import (
	"errors"
)

var (
	// ErrPointerSyntax is returned when a JSON pointer contains a malformed escape sequence.
	ErrPointerSyntax = errors.New("invalid JSON pointer syntax")
	// ErrPointerResolution is returned when a JSON pointer does not match the document structure.
	ErrPointerResolution = errors.New("JSON pointer does not match document")
	// ErrProofFormat is returned when a proofValue has an unknown header, a wrong CBOR
	// arity or cannot be multibase decoded.
	ErrProofFormat = errors.New("malformed proof value")
	// ErrDisclosurePolicy is returned when a derived proof would not disclose every
	// mandatory statement.
	ErrDisclosurePolicy = errors.New("disclosure does not cover mandatory statements")
	// ErrSelection is returned when a pointer requested for disclosure does not resolve.
	ErrSelection = errors.New("failed to select disclosed statements")
	// ErrResolution is returned when the document loader cannot resolve a context URI.
	ErrResolution = errors.New("failed to resolve JSON-LD document")
)
