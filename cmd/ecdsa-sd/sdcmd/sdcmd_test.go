/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdcmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/internal/testutil/ldtestutil"
	"github.com/trustbloc/di-sd-go/multikey"
)

func TestCommandContents(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 5)

	signCmd := SignCmd()
	require.Equal(t, "sign", signCmd.Use)
	require.Equal(t, "Create a base proof", signCmd.Short)

	checkFlagPropertiesCorrect(t, signCmd, inputFlagName, inputFlagShorthand, inputFlagUsage, "")
	checkFlagPropertiesCorrect(t, signCmd, pointersFlagName, pointersFlagShorthand, pointersFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, signCmd, keyFileFlagName, keyFileFlagShorthand, keyFileFlagUsage, "")

	verifyCmd := VerifyCmd("verify-derived", "Verify a derived proof", true)
	require.Equal(t, "verify-derived", verifyCmd.Use)
	checkFlagPropertiesCorrect(t, verifyCmd, publicKeyFlagName, "", publicKeyFlagUsage, "")
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName,
	flagShorthand, flagUsage, expectedVal string) {
	t.Helper()

	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, expectedVal, flag.Value.String())
}

type workspace struct {
	dir     string
	context string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	w := &workspace{dir: t.TempDir()}

	ctxPath := w.write(t, "credentials-v2.jsonld", ldtestutil.CredentialsV2ContextDocument())
	w.context = ldtestutil.CredentialsV2Context + "=" + ctxPath

	doc, err := json.Marshal(ldtestutil.WindDocument(t))
	require.NoError(t, err)

	w.write(t, "doc.json", doc)

	return w
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) write(t *testing.T, name string, content []byte) string {
	t.Helper()

	require.NoError(t, os.WriteFile(w.path(name), content, 0o600))

	return w.path(name)
}

func (w *workspace) read(t *testing.T, name string) map[string]interface{} {
	t.Helper()

	raw, err := os.ReadFile(w.path(name))
	require.NoError(t, err)

	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &m))

	return m
}

func run(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}

	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func pointerArgs(pointers []string) []string {
	var args []string

	for _, p := range pointers {
		args = append(args, "-p", p)
	}

	return args
}

func TestSignDeriveVerify(t *testing.T) {
	w := newWorkspace(t)

	_, err := run(KeygenCmd(), "-o", w.path("keys.json"))
	require.NoError(t, err)

	keys := w.read(t, "keys.json")
	require.Contains(t, keys["publicKeyMultibase"], "zDn")
	require.Len(t, keys["hmacKey"], 64)

	_, err = run(SignCmd(), append([]string{
		"-i", w.path("doc.json"),
		"-k", w.path("keys.json"),
		"-o", w.path("signed.json"),
		"--context", w.context,
		"--log-level", "DEBUG",
	}, pointerArgs(ldtestutil.WindMandatoryPointers(t))...)...)
	require.NoError(t, err)

	signed := w.read(t, "signed.json")
	require.Contains(t, signed, "proof")

	out, err := run(VerifyCmd("verify-base", "Verify a base proof", false),
		"-i", w.path("signed.json"), "-k", w.path("keys.json"), "--context", w.context)
	require.NoError(t, err)
	require.JSONEq(t, `{"verified": true}`, out)

	_, err = run(DeriveCmd(), append([]string{
		"-i", w.path("signed.json"),
		"-o", w.path("derived.json"),
		"--context", w.context,
	}, pointerArgs(ldtestutil.WindSelectivePointers(t))...)...)
	require.NoError(t, err)

	out, err = run(VerifyCmd("verify-derived", "Verify a derived proof", true),
		"-i", w.path("derived.json"),
		"--public-key", keys["publicKeyMultibase"].(string),
		"--context", w.context)
	require.NoError(t, err)
	require.JSONEq(t, `{"verified": true}`, out)

	derived := w.read(t, "derived.json")
	derived["credentialSubject"].(map[string]interface{})["sailNumber"] = "CA101"

	tampered, err := json.Marshal(derived)
	require.NoError(t, err)

	w.write(t, "tampered.json", tampered)

	out, err = run(VerifyCmd("verify-derived", "Verify a derived proof", true),
		"-i", w.path("tampered.json"), "-k", w.path("keys.json"), "--context", w.context)
	require.ErrorIs(t, err, errNotVerified)
	require.JSONEq(t, `{"verified": false}`, out)

	_, err = run(DeriveCmd(), "-i", w.path("signed.json"), "--context", w.context,
		"--strict", "-p", "/credentialSubject/boards/0")
	require.ErrorContains(t, err, "derive")
}

func TestEnvironmentVariables(t *testing.T) {
	w := newWorkspace(t)

	_, err := run(KeygenCmd(), "--curve", "P-384", "-o", w.path("keys.json"))
	require.NoError(t, err)

	t.Setenv(inputEnvKey, w.path("doc.json"))
	t.Setenv(keyFileEnvKey, w.path("keys.json"))
	t.Setenv(contextEnvKey, w.context)
	t.Setenv(pointersEnvKey, "/issuer,/credentialSubject/sailNumber")
	t.Setenv(outputEnvKey, w.path("signed.json"))

	_, err = run(SignCmd())
	require.NoError(t, err)

	t.Setenv(inputEnvKey, w.path("signed.json"))
	t.Setenv(outputEnvKey, "")

	out, err := run(VerifyCmd("verify-base", "Verify a base proof", false))
	require.NoError(t, err)
	require.JSONEq(t, `{"verified": true}`, out)
}

func TestCommandErrors(t *testing.T) {
	w := newWorkspace(t)

	_, err := run(SignCmd(), "-k", w.path("keys.json"))
	require.ErrorContains(t, err, "Neither input (command line flag) nor "+inputEnvKey)

	_, err = run(SignCmd(), "-i", w.path("missing.json"))
	require.ErrorContains(t, err, "read input")

	_, err = run(SignCmd(), "-i", w.path("doc.json"))
	require.ErrorContains(t, err, "Neither key-file")

	_, err = run(SignCmd(), "-i", w.path("doc.json"), "--context", "no-separator")
	require.ErrorContains(t, err, "url=path")

	_, err = run(SignCmd(), "-i", w.path("doc.json"), "--log-level", "LOUD")
	require.ErrorContains(t, err, "failed to parse log level")

	_, err = run(DeriveCmd(), "-i", w.path("doc.json"), "--context-ttl", "soon")
	require.ErrorContains(t, err, "invalid context-ttl")

	_, err = run(KeygenCmd(), "--curve", "P-521")
	require.Error(t, err)

	_, pub, err := ecdsasigner.GenerateKeyPair(multikey.P256)
	require.NoError(t, err)

	encoded, err := multikey.EncodePublicKey(pub)
	require.NoError(t, err)

	w.write(t, "public.json", []byte(`{"publicKeyMultibase": "`+encoded+`"}`))

	_, err = run(SignCmd(), "-i", w.path("doc.json"), "-k", w.path("public.json"), "--context", w.context)
	require.ErrorContains(t, err, "no private key")

	w.write(t, "nokey.json", []byte(`{"hmacKey": "00ff"}`))

	_, err = run(SignCmd(), "-i", w.path("doc.json"), "-k", w.path("nokey.json"), "--context", w.context)
	require.ErrorContains(t, err, "key file is not valid")
	require.ErrorContains(t, err, "publicKeyMultibase is required")

	w.write(t, "badhmac.json", []byte(`{"publicKeyMultibase": "`+encoded+`", "hmacKey": "xyz"}`))

	_, err = run(SignCmd(), "-i", w.path("doc.json"), "-k", w.path("badhmac.json"), "--context", w.context)
	require.ErrorContains(t, err, "key file is not valid")

	_, err = run(VerifyCmd("verify-base", "Verify a base proof", false),
		"-i", w.path("doc.json"), "--public-key", "not-a-key", "--context", w.context)
	require.ErrorContains(t, err, "public key")
}
