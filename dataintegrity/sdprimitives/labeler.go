/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdprimitives

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/multiformats/go-multibase"
)

// ErrUnknownLabel is returned when a label map has no entry for a canonical label.
var ErrUnknownLabel = errors.New("no label for canonical blank node")

// LabelMapFactory replaces the labels a canonicalization assigned. It receives a map
// from blank node identifiers to their canonical labels (such as "c14n0") and
// returns a map from the same identifiers to the labels to use instead.
type LabelMapFactory interface {
	LabelMap(canonicalIDMap map[string]string) (map[string]string, error)
}

// LabelMapFactoryFunc adapts a function to LabelMapFactory.
type LabelMapFactoryFunc func(canonicalIDMap map[string]string) (map[string]string, error)

// LabelMap calls f.
func (f LabelMapFactoryFunc) LabelMap(canonicalIDMap map[string]string) (map[string]string, error) {
	return f(canonicalIDMap)
}

// NewHMACLabeler labels each blank node with "u" followed by the unpadded base64url
// HMAC-SHA-256 of its canonical label under key.
func NewHMACLabeler(key []byte) LabelMapFactory {
	return LabelMapFactoryFunc(func(canonicalIDMap map[string]string) (map[string]string, error) {
		labels := make(map[string]string, len(canonicalIDMap))

		for id, canonical := range canonicalIDMap {
			label, err := HMACLabel(key, canonical)
			if err != nil {
				return nil, err
			}

			labels[id] = label
		}

		return labels, nil
	})
}

// HMACLabel computes the HMAC label of a single canonical label.
func HMACLabel(key []byte, canonicalLabel string) (string, error) {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonicalLabel))

	return multibase.Encode(multibase.Base64url, mac.Sum(nil))
}

// NewLabelMapLabeler replays a known map from canonical labels to labels, as
// disclosed alongside a derived proof.
func NewLabelMapLabeler(labels map[string]string) LabelMapFactory {
	return LabelMapFactoryFunc(func(canonicalIDMap map[string]string) (map[string]string, error) {
		out := make(map[string]string, len(canonicalIDMap))

		for id, canonical := range canonicalIDMap {
			label, ok := labels[canonical]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, canonical)
			}

			out[id] = label
		}

		return out, nil
	})
}
