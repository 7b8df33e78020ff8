/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdcmd holds the ecdsa-sd sub-commands.
package sdcmd

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/piprate/json-gold/ld"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	ecdsasigner "github.com/trustbloc/di-sd-go/crypto-ext/signers/ecdsa"
	"github.com/trustbloc/di-sd-go/dataintegrity/models"
	"github.com/trustbloc/di-sd-go/dataintegrity/suite/ecdsasd2023"
	"github.com/trustbloc/di-sd-go/ldloader"
	"github.com/trustbloc/di-sd-go/multikey"
)

const (
	inputFlagName      = "input"
	inputEnvKey        = "ECDSASD_INPUT"
	inputFlagShorthand = "i"
	inputFlagUsage     = "Path of the JSON-LD document to process." +
		" Alternatively, this can be set with the following environment variable: " + inputEnvKey

	outputFlagName      = "output"
	outputEnvKey        = "ECDSASD_OUTPUT"
	outputFlagShorthand = "o"
	outputFlagUsage     = "Path to write the result to. Defaults to standard output." +
		" Alternatively, this can be set with the following environment variable: " + outputEnvKey

	keyFileFlagName      = "key-file"
	keyFileEnvKey        = "ECDSASD_KEY_FILE"
	keyFileFlagShorthand = "k"
	keyFileFlagUsage     = "Path of a JSON key file with publicKeyMultibase, privateKeyMultibase and a hex hmacKey." +
		" Alternatively, this can be set with the following environment variable: " + keyFileEnvKey

	publicKeyFlagName  = "public-key"
	publicKeyEnvKey    = "ECDSASD_PUBLIC_KEY"
	publicKeyFlagUsage = "Issuer public key as a multikey string. Overrides the key file." +
		" Alternatively, this can be set with the following environment variable: " + publicKeyEnvKey

	pointersFlagName      = "pointer"
	pointersEnvKey        = "ECDSASD_POINTERS"
	pointersFlagShorthand = "p"
	pointersFlagUsage     = "JSON pointer; mandatory when signing, disclosed when deriving." +
		" This flag can be repeated." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + pointersEnvKey

	strictFlagName  = "strict"
	strictFlagUsage = "Disclose only the given pointers and fail if a mandatory statement is left out."

	verificationMethodFlagName  = "verification-method"
	verificationMethodEnvKey    = "ECDSASD_VERIFICATION_METHOD"
	verificationMethodFlagUsage = "Verification method of the proof. Defaults to the did:key of the public key." +
		" Alternatively, this can be set with the following environment variable: " + verificationMethodEnvKey

	purposeFlagName  = "purpose"
	purposeEnvKey    = "ECDSASD_PROOF_PURPOSE"
	purposeFlagUsage = "Proof purpose. Defaults to " + ecdsasd2023.AssertionMethod + " when signing" +
		" and is not checked when verifying if unset." +
		" Alternatively, this can be set with the following environment variable: " + purposeEnvKey

	curveFlagName  = "curve"
	curveFlagUsage = "Curve of the generated issuer key: P-256 or P-384."

	contextFlagName  = "context"
	contextEnvKey    = "ECDSASD_CONTEXTS"
	contextFlagUsage = "Local JSON-LD context in url=path form, served instead of fetching url." +
		" This flag can be repeated." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + contextEnvKey

	contextTTLFlagName  = "context-ttl"
	contextTTLEnvKey    = "ECDSASD_CONTEXT_TTL"
	contextTTLFlagUsage = "How long fetched contexts stay cached, e.g. 10m. Defaults to 1h." +
		" Alternatively, this can be set with the following environment variable: " + contextTTLEnvKey

	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "ECDSASD_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	httpTimeout = 30 * time.Second
	hmacKeySize = 32
)

var logger = log.New("di-sd-go/cmd")

// errNotVerified is returned by the verify commands when a proof does not verify.
var errNotVerified = errors.New("proof not verified")

// KeyFile is the JSON layout of the key material the commands read and keygen writes.
type KeyFile struct {
	PublicKeyMultibase  string `json:"publicKeyMultibase"`
	PrivateKeyMultibase string `json:"privateKeyMultibase,omitempty"`
	HMACKey             string `json:"hmacKey,omitempty"`
}

const keyFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "publicKeyMultibase": {"type": "string", "pattern": "^z[1-9A-HJ-NP-Za-km-z]+$"},
    "privateKeyMultibase": {"type": "string", "pattern": "^z[1-9A-HJ-NP-Za-km-z]+$"},
    "hmacKey": {"type": "string", "pattern": "^([0-9a-fA-F]{2})*$"}
  },
  "required": ["publicKeyMultibase"]
}`

var keyFileSchemaLoader = gojsonschema.NewStringLoader(keyFileSchema)

func describeSchemaValidationError(result *gojsonschema.Result, what string) string {
	errMsg := what + " is not valid:\n"
	for _, desc := range result.Errors() {
		errMsg += fmt.Sprintf("- %s\n", desc)
	}

	return errMsg
}

// Commands returns every ecdsa-sd sub-command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		KeygenCmd(),
		SignCmd(),
		DeriveCmd(),
		VerifyCmd("verify-base", "Verify a base proof", false),
		VerifyCmd("verify-derived", "Verify a derived proof", true),
	}
}

// KeygenCmd creates an issuer key pair and an HMAC key.
func KeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate key material",
		Long:  "Generate an issuer key pair and an HMAC key as a JSON key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := cmd.Flags().GetString(curveFlagName)
			if err != nil {
				return err
			}

			if _, err = multikey.Curve(curve); err != nil {
				return err
			}

			priv, pub, err := ecdsasigner.GenerateKeyPair(curve)
			if err != nil {
				return err
			}

			hmacKey := make([]byte, hmacKeySize)

			if _, err = rand.Read(hmacKey); err != nil {
				return err
			}

			kf := &KeyFile{HMACKey: hex.EncodeToString(hmacKey)}

			if kf.PublicKeyMultibase, err = multikey.EncodePublicKey(pub); err != nil {
				return err
			}

			if kf.PrivateKeyMultibase, err = multikey.EncodePrivateKey(priv); err != nil {
				return err
			}

			return writeJSON(cmd, kf)
		},
	}

	cmd.Flags().String(curveFlagName, multikey.P256, curveFlagUsage)
	cmd.Flags().StringP(outputFlagName, outputFlagShorthand, "", outputFlagUsage)

	return cmd
}

// SignCmd adds a base proof to a document.
func SignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Create a base proof",
		Long:  "Sign a JSON-LD document with an ecdsa-sd-2023 base proof",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, doc, err := prepare(cmd)
			if err != nil {
				return err
			}

			kf, err := readKeyFile(cmd)
			if err != nil {
				return err
			}

			keyPair, hmacKey, err := kf.keys()
			if err != nil {
				return err
			}

			if len(keyPair.Private) == 0 {
				return errors.New("key file has no private key")
			}

			pointers, err := getUserSetVars(cmd, pointersFlagName, pointersEnvKey, true)
			if err != nil {
				return err
			}

			vm, err := getUserSetVar(cmd, verificationMethodFlagName, verificationMethodEnvKey, true)
			if err != nil {
				return err
			}

			purpose, err := getUserSetVar(cmd, purposeFlagName, purposeEnvKey, true)
			if err != nil {
				return err
			}

			signed, err := s.SignBase(doc, keyPair, pointers, &ecdsasd2023.SignOptions{
				HMACKey: hmacKey,
				ProofConfig: &models.ProofOptions{
					VerificationMethodID: vm,
					Purpose:              purpose,
				},
			})
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}

			return writeJSON(cmd, signed)
		},
	}

	createDocumentFlags(cmd)
	cmd.Flags().StringP(keyFileFlagName, keyFileFlagShorthand, "", keyFileFlagUsage)
	cmd.Flags().StringSliceP(pointersFlagName, pointersFlagShorthand, []string{}, pointersFlagUsage)
	cmd.Flags().String(verificationMethodFlagName, "", verificationMethodFlagUsage)
	cmd.Flags().String(purposeFlagName, "", purposeFlagUsage)

	return cmd
}

// DeriveCmd turns a base-signed document into a selectively disclosed one.
func DeriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a selective disclosure",
		Long:  "Derive a document disclosing the given pointers and the mandatory statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, doc, err := prepare(cmd)
			if err != nil {
				return err
			}

			pointers, err := getUserSetVars(cmd, pointersFlagName, pointersEnvKey, true)
			if err != nil {
				return err
			}

			strict, err := cmd.Flags().GetBool(strictFlagName)
			if err != nil {
				return err
			}

			derived, err := s.Derive(doc, pointers, &ecdsasd2023.DeriveOptions{StrictDisclosure: strict})
			if err != nil {
				return fmt.Errorf("derive: %w", err)
			}

			return writeJSON(cmd, derived)
		},
	}

	createDocumentFlags(cmd)
	cmd.Flags().StringSliceP(pointersFlagName, pointersFlagShorthand, []string{}, pointersFlagUsage)
	cmd.Flags().Bool(strictFlagName, false, strictFlagUsage)

	return cmd
}

// VerifyCmd checks a base or a derived proof and reports the outcome.
func VerifyCmd(use, short string, derived bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + " against the issuer public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, doc, err := prepare(cmd)
			if err != nil {
				return err
			}

			pub, err := issuerPublicKey(cmd)
			if err != nil {
				return err
			}

			purpose, err := getUserSetVar(cmd, purposeFlagName, purposeEnvKey, true)
			if err != nil {
				return err
			}

			verify := s.VerifyBase
			if derived {
				verify = s.VerifyDerived
			}

			ok, err := verify(doc, pub, &ecdsasd2023.VerifyOptions{Purpose: purpose})
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}

			if err = writeJSON(cmd, map[string]bool{"verified": ok}); err != nil {
				return err
			}

			if !ok {
				return errNotVerified
			}

			return nil
		},
	}

	createDocumentFlags(cmd)
	cmd.Flags().StringP(keyFileFlagName, keyFileFlagShorthand, "", keyFileFlagUsage)
	cmd.Flags().String(publicKeyFlagName, "", publicKeyFlagUsage)
	cmd.Flags().String(purposeFlagName, "", purposeFlagUsage)

	return cmd
}

func createDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(inputFlagName, inputFlagShorthand, "", inputFlagUsage)
	cmd.Flags().StringP(outputFlagName, outputFlagShorthand, "", outputFlagUsage)
	cmd.Flags().StringSlice(contextFlagName, []string{}, contextFlagUsage)
	cmd.Flags().String(contextTTLFlagName, "", contextTTLFlagUsage)
	cmd.Flags().String(logLevelFlagName, "", logLevelFlagUsage)
}

// prepare applies the log level, builds the suite and reads the input document.
func prepare(cmd *cobra.Command) (*ecdsasd2023.Suite, map[string]interface{}, error) {
	if err := setLogLevel(cmd); err != nil {
		return nil, nil, err
	}

	loader, err := documentLoader(cmd)
	if err != nil {
		return nil, nil, err
	}

	input, err := getUserSetVar(cmd, inputFlagName, inputEnvKey, false)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(input) //nolint:gosec
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}

	doc := map[string]interface{}{}

	if err = json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("input is not a JSON object: %w", err)
	}

	return ecdsasd2023.NewSuite(&ecdsasd2023.Options{LDDocumentLoader: loader}), doc, nil
}

func documentLoader(cmd *cobra.Command) (*ldloader.DocumentLoader, error) {
	contexts, err := getUserSetVars(cmd, contextFlagName, contextEnvKey, true)
	if err != nil {
		return nil, err
	}

	var opts []ldloader.Opts

	for _, c := range contexts {
		u, path, ok := strings.Cut(c, "=")
		if !ok {
			return nil, fmt.Errorf("context %q is not in url=path form", c)
		}

		content, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("read context %s: %w", u, err)
		}

		opts = append(opts, ldloader.WithContext(u, content))
	}

	ttl, err := getUserSetVar(cmd, contextTTLFlagName, contextTTLEnvKey, true)
	if err != nil {
		return nil, err
	}

	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", contextTTLFlagName, err)
		}

		opts = append(opts, ldloader.WithTTL(d))
	}

	base := ld.NewDefaultDocumentLoader(&http.Client{Timeout: httpTimeout})

	return ldloader.New(base, opts...), nil
}

func readKeyFile(cmd *cobra.Command) (*KeyFile, error) {
	path, err := getUserSetVar(cmd, keyFileFlagName, keyFileEnvKey, false)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	result, err := gojsonschema.Validate(keyFileSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}

	if !result.Valid() {
		return nil, errors.New(describeSchemaValidationError(result, "key file"))
	}

	kf := &KeyFile{}

	if err = json.Unmarshal(raw, kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}

	return kf, nil
}

// keys decodes the key file. The HMAC key is nil when the file has none.
func (kf *KeyFile) keys() (*ecdsasd2023.KeyPair, []byte, error) {
	keyPair := &ecdsasd2023.KeyPair{}

	pub, err := multikey.Decode(kf.PublicKeyMultibase)
	if err != nil {
		return nil, nil, fmt.Errorf("publicKeyMultibase: %w", err)
	}

	keyPair.Public = pub.Bytes

	if kf.PrivateKeyMultibase != "" {
		priv, err := multikey.Decode(kf.PrivateKeyMultibase)
		if err != nil {
			return nil, nil, fmt.Errorf("privateKeyMultibase: %w", err)
		}

		if !priv.Private || priv.Curve != pub.Curve {
			return nil, nil, errors.New("privateKeyMultibase does not match publicKeyMultibase")
		}

		keyPair.Private = priv.Bytes
	}

	var hmacKey []byte

	if kf.HMACKey != "" {
		if hmacKey, err = hex.DecodeString(kf.HMACKey); err != nil {
			return nil, nil, fmt.Errorf("hmacKey: %w", err)
		}
	}

	return keyPair, hmacKey, nil
}

func issuerPublicKey(cmd *cobra.Command) ([]byte, error) {
	encoded, err := getUserSetVar(cmd, publicKeyFlagName, publicKeyEnvKey, true)
	if err != nil {
		return nil, err
	}

	if encoded == "" {
		kf, err := readKeyFile(cmd)
		if err != nil {
			return nil, err
		}

		encoded = kf.PublicKeyMultibase
	}

	key, err := multikey.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	if key.Private {
		return nil, errors.New("public key expected, got a private key")
	}

	return key.Bytes, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	out = append(out, '\n')

	path, err := getUserSetVar(cmd, outputFlagName, outputEnvKey, true)
	if err != nil {
		return err
	}

	if path == "" {
		_, err = cmd.OutOrStdout().Write(out)

		return err
	}

	return os.WriteFile(path, out, 0o600)
}

func setLogLevel(cmd *cobra.Command) error {
	logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
	if err != nil {
		return err
	}

	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Debugf("logger level set to %s", logLevel)
	}

	return nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}
