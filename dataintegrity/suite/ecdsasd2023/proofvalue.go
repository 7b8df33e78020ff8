/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsasd2023

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/di-sd-go/dataintegrity"
)

const payloadFields = 5

var (
	baseProofHeader    = []byte{0xd9, 0x5d, 0x00}
	derivedProofHeader = []byte{0xd9, 0x5d, 0x01}
)

// Pre-configured modes for CBOR encoding and decoding.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic, // sort map keys
		IndefLength: cbor.IndefLengthForbidden,  // no streaming
	}

	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF, // duplicated key not allowed
		IndefLength: cbor.IndefLengthForbidden, // no streaming
		IntDec:      cbor.IntDecConvertSigned,
	}

	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(err)
	}
}

// basePayload is the content of a base proof value.
type basePayload struct {
	_                 struct{} `cbor:",toarray"`
	BaseSignature     []byte
	PublicKey         []byte
	HMACKey           []byte
	Signatures        [][]byte
	MandatoryPointers []string
}

// derivedPayload is the content of a derived proof value. LabelMap maps the n of
// a canonical label "c14n<n>" to the HMAC digest the issuer labeled it with.
type derivedPayload struct {
	_                struct{} `cbor:",toarray"`
	BaseSignature    []byte
	PublicKey        []byte
	Signatures       [][]byte
	MandatoryIndexes []int
	LabelMap         map[int][]byte
}

func encodeBaseProofValue(p *basePayload) (string, error) {
	if p.Signatures == nil {
		p.Signatures = [][]byte{}
	}

	if p.MandatoryPointers == nil {
		p.MandatoryPointers = []string{}
	}

	return encodeProofValue(baseProofHeader, p)
}

func encodeDerivedProofValue(p *derivedPayload) (string, error) {
	if p.Signatures == nil {
		p.Signatures = [][]byte{}
	}

	if p.MandatoryIndexes == nil {
		p.MandatoryIndexes = []int{}
	}

	if p.LabelMap == nil {
		p.LabelMap = map[int][]byte{}
	}

	return encodeProofValue(derivedProofHeader, p)
}

func encodeProofValue(header []byte, payload interface{}) (string, error) {
	data, err := encMode.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode proof value: %w", err)
	}

	return multibase.Encode(multibase.Base64url, append(append([]byte{}, header...), data...))
}

func decodeBaseProofValue(proofValue string) (*basePayload, error) {
	p := &basePayload{}

	if err := decodeProofValue(proofValue, baseProofHeader, p); err != nil {
		return nil, err
	}

	return p, nil
}

func decodeDerivedProofValue(proofValue string) (*derivedPayload, error) {
	p := &derivedPayload{}

	if err := decodeProofValue(proofValue, derivedProofHeader, p); err != nil {
		return nil, err
	}

	return p, nil
}

func decodeProofValue(proofValue string, header []byte, payload interface{}) error {
	data, err := proofValueBytes(proofValue)
	if err != nil {
		return err
	}

	if !bytes.HasPrefix(data, header) {
		return fmt.Errorf("%w: unexpected header %x", dataintegrity.ErrProofFormat, data[:len(header)])
	}

	var fields []cbor.RawMessage

	if err = decMode.Unmarshal(data[len(header):], &fields); err != nil {
		return fmt.Errorf("%w: %w", dataintegrity.ErrProofFormat, err)
	}

	if len(fields) != payloadFields {
		return fmt.Errorf("%w: expected %d elements, got %d", dataintegrity.ErrProofFormat, payloadFields, len(fields))
	}

	if err = decMode.Unmarshal(data[len(header):], payload); err != nil {
		return fmt.Errorf("%w: %w", dataintegrity.ErrProofFormat, err)
	}

	return nil
}

// isDerivedProofValue reports whether proofValue carries the derived proof header.
func isDerivedProofValue(proofValue string) (bool, error) {
	data, err := proofValueBytes(proofValue)
	if err != nil {
		return false, err
	}

	switch {
	case bytes.HasPrefix(data, baseProofHeader):
		return false, nil
	case bytes.HasPrefix(data, derivedProofHeader):
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown header %x", dataintegrity.ErrProofFormat, data[:len(baseProofHeader)])
	}
}

func proofValueBytes(proofValue string) ([]byte, error) {
	if !strings.HasPrefix(proofValue, "u") {
		return nil, fmt.Errorf("%w: proof value must be base64url multibase", dataintegrity.ErrProofFormat)
	}

	_, data, err := multibase.Decode(proofValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataintegrity.ErrProofFormat, err)
	}

	if len(data) < len(baseProofHeader) {
		return nil, fmt.Errorf("%w: proof value too short", dataintegrity.ErrProofFormat)
	}

	return data, nil
}

const canonicalLabelPrefix = "c14n"

// compressLabelMap turns {"c14n0": "u<digest>"} into {0: digest}.
func compressLabelMap(labels map[string]string) (map[int][]byte, error) {
	compressed := make(map[int][]byte, len(labels))

	for c14n, label := range labels {
		n, err := strconv.Atoi(strings.TrimPrefix(c14n, canonicalLabelPrefix))
		if err != nil || !strings.HasPrefix(c14n, canonicalLabelPrefix) {
			return nil, fmt.Errorf("invalid canonical label %q", c14n)
		}

		enc, digest, err := multibase.Decode(label)
		if err != nil || enc != multibase.Base64url {
			return nil, fmt.Errorf("invalid HMAC label %q", label)
		}

		compressed[n] = digest
	}

	return compressed, nil
}

func decompressLabelMap(compressed map[int][]byte) (map[string]string, error) {
	labels := make(map[string]string, len(compressed))

	for n, digest := range compressed {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative canonical label index", dataintegrity.ErrProofFormat)
		}

		label, err := multibase.Encode(multibase.Base64url, digest)
		if err != nil {
			return nil, err
		}

		labels[canonicalLabelPrefix+strconv.Itoa(n)] = label
	}

	return labels, nil
}
