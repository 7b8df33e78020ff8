/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dataintegrity_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/trustbloc/did-go/doc/did"
	"github.com/trustbloc/kms-go/doc/jose/jwk/jwksupport"

	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/dataintegrity"
	"github.com/trustbloc/di-sd-go/dataintegrity/models"
	"github.com/trustbloc/di-sd-go/dataintegrity/suite"
	"github.com/trustbloc/di-sd-go/dataintegrity/suite/ecdsasd2023"
	"github.com/trustbloc/di-sd-go/internal/testutil/ldtestutil"
	"github.com/trustbloc/di-sd-go/multikey"
)

const (
	mockDID = "did:test:issuer"
	mockKID = mockDID + "#key-1"
)

func TestIntegration(t *testing.T) {
	docLoader := ldtestutil.DocumentLoader(t)

	verifierInit := ecdsasd2023.NewVerifierInitializer(&ecdsasd2023.VerifierInitializerOptions{
		LDDocumentLoader: docLoader,
	})

	holder := ecdsasd2023.NewSuite(&ecdsasd2023.Options{LDDocumentLoader: docLoader})

	credential, err := json.Marshal(ldtestutil.WindDocument(t))
	require.NoError(t, err)

	for _, curve := range []string{multikey.P256, multikey.P384} {
		t.Run(curve, func(t *testing.T) {
			priv, pub, err := ecdsasigner.GenerateKeyPair(curve)
			require.NoError(t, err)

			issuerKey, err := ecdsasigner.NewSigner(priv)
			require.NoError(t, err)

			vm := verificationMethod(t, pub)

			signerInit := ecdsasd2023.NewSignerInitializer(&ecdsasd2023.SignerInitializerOptions{
				LDDocumentLoader: docLoader,
				SignerGetter:     ecdsasd2023.WithStaticSigner(issuerKey),
			})

			signer, err := signerInit.Signer()
			require.NoError(t, err)

			verifier, err := verifierInit.Verifier()
			require.NoError(t, err)

			proofOpts := func() *models.ProofOptions {
				return &models.ProofOptions{
					VerificationMethod: vm,
					Purpose:            ecdsasd2023.AssertionMethod,
					ProofType:          models.DataIntegrityProof,
					Created:            time.Now(),
					MandatoryPointers:  ldtestutil.WindMandatoryPointers(t),
				}
			}

			// issuer
			proof, err := signer.CreateProof(credential, proofOpts())
			require.NoError(t, err)
			require.Equal(t, mockKID, proof.VerificationMethod)

			signedCred, err := sjson.SetBytes(credential, "proof", proof)
			require.NoError(t, err)

			require.NoError(t, verifier.VerifyProof(signedCred, readProof(t, signedCred), proofOpts()))

			// holder
			signedDoc := map[string]interface{}{}
			require.NoError(t, json.Unmarshal(signedCred, &signedDoc))

			ok, err := holder.VerifyBase(signedDoc, pub, nil)
			require.NoError(t, err)
			require.True(t, ok)

			derivedDoc, err := holder.Derive(signedDoc, ldtestutil.WindSelectivePointers(t), nil)
			require.NoError(t, err)

			derivedCred, err := json.Marshal(derivedDoc)
			require.NoError(t, err)

			require.Equal(t, "Earth101", gjson.GetBytes(derivedCred, "credentialSubject.sailNumber").String())
			require.Len(t, gjson.GetBytes(derivedCred, "credentialSubject.sails").Array(), 2)
			require.Len(t, gjson.GetBytes(derivedCred, "credentialSubject.boards").Array(), 2)
			require.False(t, gjson.GetBytes(derivedCred, `credentialSubject.sails.#(sailName=="Kihei")`).Exists())

			// verifier
			require.NoError(t, verifier.VerifyProof(derivedCred, readProof(t, derivedCred), proofOpts()))

			t.Run("tampered disclosure", func(t *testing.T) {
				tampered, err := sjson.SetBytes(derivedCred, "credentialSubject.boards.1.year", 2020)
				require.NoError(t, err)

				err = verifier.VerifyProof(tampered, readProof(t, tampered), proofOpts())
				require.ErrorIs(t, err, suite.ErrInvalidProof)
			})

			t.Run("tampered proof", func(t *testing.T) {
				tampered, err := sjson.SetBytes(derivedCred, "proof.created", "malformed")
				require.NoError(t, err)

				err = verifier.VerifyProof(tampered, readProof(t, tampered), proofOpts())
				require.ErrorIs(t, err, suite.ErrInvalidProof)
			})

			t.Run("withheld mandatory statement", func(t *testing.T) {
				tampered, err := sjson.DeleteBytes(derivedCred, "credentialSubject.sailNumber")
				require.NoError(t, err)

				err = verifier.VerifyProof(tampered, readProof(t, tampered), proofOpts())
				require.ErrorIs(t, err, suite.ErrInvalidProof)
			})

			t.Run("strict disclosure without mandatory pointers", func(t *testing.T) {
				_, err := holder.Derive(signedDoc, ldtestutil.WindSelectivePointers(t),
					&ecdsasd2023.DeriveOptions{StrictDisclosure: true})
				require.ErrorIs(t, err, dataintegrity.ErrDisclosurePolicy)
			})

			t.Run("wrong issuer key", func(t *testing.T) {
				_, otherPub, err := ecdsasigner.GenerateKeyPair(curve)
				require.NoError(t, err)

				opts := proofOpts()
				opts.VerificationMethod = verificationMethod(t, otherPub)

				err = verifier.VerifyProof(derivedCred, readProof(t, derivedCred), opts)
				require.ErrorIs(t, err, suite.ErrInvalidProof)
			})
		})
	}
}

func verificationMethod(t *testing.T, pub []byte) *models.VerificationMethod {
	t.Helper()

	key, err := multikey.ParsePublicKey(pub)
	require.NoError(t, err)

	j, err := jwksupport.JWKFromKey(key)
	require.NoError(t, err)

	vm, err := did.NewVerificationMethodFromJWK(mockKID, "JsonWebKey2020", mockDID, j)
	require.NoError(t, err)

	return vm
}

func readProof(t *testing.T, doc []byte) *models.Proof {
	t.Helper()

	raw := gjson.GetBytes(doc, "proof")
	require.True(t, raw.Exists())

	proof := &models.Proof{}
	require.NoError(t, json.Unmarshal([]byte(raw.Raw), proof))

	return proof
}
