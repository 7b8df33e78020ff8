/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ldtestutil provides JSON-LD fixtures shared by package tests: an offline
// document loader carrying the credentials v2 context and the wind-surf credential.
package ldtestutil

import (
	_ "embed"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	ldcontext "github.com/trustbloc/did-go/doc/ld/context"
	"github.com/trustbloc/did-go/doc/ld/documentloader"
	didldtestutil "github.com/trustbloc/did-go/doc/ld/testutil"

	jsonutil "github.com/trustbloc/di-sd-go/util/json"
)

// CredentialsV2Context is the URL of the W3C Verifiable Credentials 2.0 context.
const CredentialsV2Context = "https://www.w3.org/ns/credentials/v2"

var (
	//go:embed testdata/credentials-v2.jsonld
	credentialsV2 []byte
	//go:embed testdata/wind_doc.json
	windDoc []byte
	//go:embed testdata/wind_mandatory.json
	windMandatory []byte
	//go:embed testdata/wind_selective.json
	windSelective []byte
)

// DocumentLoader returns an offline loader that resolves the embedded contexts plus
// the credentials v2 context.
func DocumentLoader(t *testing.T) *documentloader.DocumentLoader {
	t.Helper()

	loader, err := didldtestutil.DocumentLoader(ldcontext.Document{
		URL:     CredentialsV2Context,
		Content: credentialsV2,
	})
	require.NoError(t, err)

	return loader
}

// CredentialsV2ContextDocument returns the raw credentials v2 context.
func CredentialsV2ContextDocument() []byte {
	return append([]byte{}, credentialsV2...)
}

// WindDocument returns a fresh copy of the wind-surf race credential.
func WindDocument(t *testing.T) map[string]interface{} {
	t.Helper()

	doc, err := jsonutil.ToMap(windDoc)
	require.NoError(t, err)

	return doc
}

// WindMandatoryPointers returns the mandatory pointers of the wind-surf credential.
func WindMandatoryPointers(t *testing.T) []string {
	t.Helper()

	return pointers(t, windMandatory)
}

// WindSelectivePointers returns the pointers a holder discloses from the wind-surf credential.
func WindSelectivePointers(t *testing.T) []string {
	t.Helper()

	return pointers(t, windSelective)
}

func pointers(t *testing.T, raw []byte) []string {
	t.Helper()

	var p []string

	require.NoError(t, json.Unmarshal(raw, &p))

	return p
}
