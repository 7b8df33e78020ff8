/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsasd2023

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/trustbloc/di-sd-go/dataintegrity"
	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives"
	"github.com/trustbloc/di-sd-go/util/json"
)

// Derive turns a base-signed document into a document disclosing only the
// statements selected by selectivePointers and the issuer's mandatory pointers,
// carrying a derived proof. The base document is not modified.
func (s *Suite) Derive(signedDoc map[string]interface{}, selectivePointers []string,
	opts *DeriveOptions) (map[string]interface{}, error) {
	if opts == nil {
		opts = &DeriveOptions{}
	}

	proof, err := proofFromDocument(signedDoc)
	if err != nil {
		return nil, err
	}

	if err = checkProof(proof, ""); err != nil {
		return nil, err
	}

	payload, err := decodeBaseProofValue(proof.ProofValue)
	if err != nil {
		return nil, err
	}

	doc := json.CopyExcept(signedDoc, proofKey)

	combinedPointers := lo.Uniq(append(append([]string{}, payload.MandatoryPointers...), selectivePointers...))
	if opts.StrictDisclosure {
		combinedPointers = lo.Uniq(selectivePointers)
	}

	res, err := sdprimitives.CanonicalizeAndGroup(doc, sdprimitives.NewHMACLabeler(payload.HMACKey),
		map[string][]string{
			mandatoryGroup: payload.MandatoryPointers,
			selectiveGroup: selectivePointers,
			combinedGroup:  combinedPointers,
		}, sdprimitives.WithDocumentLoader(s.ldLoader))
	if err != nil {
		return nil, selectionError(err)
	}

	mandatory := res.Groups[mandatoryGroup]
	combined := res.Groups[combinedGroup]

	mandatoryIndexes := mandatory.MatchingIndexes()
	revealIndexes := combined.MatchingIndexes()

	if missing, _ := lo.Difference(mandatoryIndexes, revealIndexes); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d mandatory statements left out", dataintegrity.ErrDisclosurePolicy, len(missing))
	}

	nonMandatoryIndexes := mandatory.NonMatchingIndexes()
	if len(nonMandatoryIndexes) != len(payload.Signatures) {
		return nil, fmt.Errorf("%w: %d statement signatures for %d non-mandatory statements",
			dataintegrity.ErrProofFormat, len(payload.Signatures), len(nonMandatoryIndexes))
	}

	var filtered [][]byte

	for i, index := range nonMandatoryIndexes {
		if _, ok := combined.Matching[index]; ok {
			filtered = append(filtered, payload.Signatures[i])
		}
	}

	var relativeIndexes []int

	for i, index := range revealIndexes {
		if _, ok := mandatory.Matching[index]; ok {
			relativeIndexes = append(relativeIndexes, i)
		}
	}

	disclosedLabels, err := res.DisclosedLabelMap(combinedGroup)
	if err != nil {
		return nil, err
	}

	labelMap, err := compressLabelMap(disclosedLabels)
	if err != nil {
		return nil, err
	}

	reveal, err := sdprimitives.Select(doc, combinedPointers)
	if err != nil {
		return nil, selectionError(err)
	}

	if reveal == nil {
		reveal = map[string]interface{}{}

		if ctx, ok := doc[ldCtxKey]; ok {
			reveal[ldCtxKey] = json.DeepCopy(ctx)
		}
	}

	reveal = sdprimitives.RelabelBlankIDs(reveal)

	derivedProof := *proof

	derivedProof.ProofValue, err = encodeDerivedProofValue(&derivedPayload{
		BaseSignature:    payload.BaseSignature,
		PublicKey:        payload.PublicKey,
		Signatures:       filtered,
		MandatoryIndexes: relativeIndexes,
		LabelMap:         labelMap,
	})
	if err != nil {
		return nil, err
	}

	return withProof(reveal, &derivedProof)
}

func selectionError(err error) error {
	if errors.Is(err, dataintegrity.ErrPointerResolution) || errors.Is(err, dataintegrity.ErrPointerSyntax) {
		return fmt.Errorf("%w: %w", dataintegrity.ErrSelection, err)
	}

	return err
}
