/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdprimitives

import (
	"fmt"

	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/did-go/doc/ld/processor"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives/rdfc"
	"github.com/trustbloc/di-sd-go/ldloader"
	"github.com/trustbloc/di-sd-go/util/json"
)

type options struct {
	loader ld.DocumentLoader
	seed   string
}

// Opt configures the grouping engine.
type Opt func(opts *options)

// WithDocumentLoader sets the loader used to resolve JSON-LD contexts. Contexts are
// fetched over HTTP when none is set.
func WithDocumentLoader(loader ld.DocumentLoader) Opt {
	return func(opts *options) {
		opts.loader = loader
	}
}

// WithSkolemSeed fixes the random part of skolem IRIs. Defaults to a fresh UUID.
func WithSkolemSeed(seed string) Opt {
	return func(opts *options) {
		opts.seed = seed
	}
}

func prepareOpts(opts []Opt) *options {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	if o.loader == nil {
		o.loader = ldloader.New(ld.NewDefaultDocumentLoader(nil))
	}

	return o
}

// Group is the partition of the canonical statements selected by a set of pointers.
// Both maps are keyed by statement index.
type Group struct {
	Matching    map[int]string
	NonMatching map[int]string

	// Selection is the skolemized compact document the pointers selected.
	Selection map[string]interface{}

	selection *rdfc.Dataset
}

// MatchingIndexes returns the indexes of the matching statements in ascending order.
func (g *Group) MatchingIndexes() []int {
	return sortedKeys(g.Matching)
}

// NonMatchingIndexes returns the indexes of the other statements in ascending order.
func (g *Group) NonMatchingIndexes() []int {
	return sortedKeys(g.NonMatching)
}

func sortedKeys(m map[int]string) []int {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}

// GroupResult is the output of CanonicalizeAndGroup.
type GroupResult struct {
	// NQuads are the relabeled canonical statements, sorted.
	NQuads []string
	// LabelMap maps skolem IRIs (and remaining blank node labels) to their new labels.
	LabelMap map[string]string
	// Groups holds one Group per requested group name.
	Groups map[string]*Group

	loader ld.DocumentLoader
}

// CanonicalizeAndGroup canonicalizes doc, relabels its blank nodes with factory and
// partitions the resulting statements by each named pointer set.
func CanonicalizeAndGroup(doc map[string]interface{}, factory LabelMapFactory,
	groups map[string][]string, opts ...Opt) (*GroupResult, error) {
	o := prepareOpts(opts)

	skolemized, err := skolemizeCompact(doc, NewSkolemizer(o.seed), o.loader)
	if err != nil {
		return nil, err
	}

	dataset, err := rdfc.ToDataset(skolemized, o.loader)
	if err != nil {
		return nil, err
	}

	canonicalIDs, err := dataset.CanonicalLabels()
	if err != nil {
		return nil, err
	}

	labelMap, err := factory.LabelMap(canonicalIDs)
	if err != nil {
		return nil, err
	}

	statements, err := dataset.Relabel(labelMap)
	if err != nil {
		return nil, err
	}

	slices.Sort(statements)

	result := &GroupResult{
		NQuads:   statements,
		LabelMap: labelMap,
		Groups:   make(map[string]*Group, len(groups)),
		loader:   o.loader,
	}

	index := make(map[string]int, len(statements))

	for i, s := range statements {
		index[s] = i
	}

	for name, pointers := range groups {
		group, err := result.group(skolemized, pointers, index)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}

		result.Groups[name] = group
	}

	return result, nil
}

func (r *GroupResult) group(skolemized map[string]interface{}, pointers []string,
	index map[string]int) (*Group, error) {
	g := &Group{
		Matching:    map[int]string{},
		NonMatching: map[int]string{},
	}

	selection, err := Select(skolemized, pointers)
	if err != nil {
		return nil, err
	}

	if selection != nil {
		g.Selection = selection

		g.selection, err = rdfc.ToDataset(selection, r.loader)
		if err != nil {
			return nil, err
		}

		relabeled, err := g.selection.Relabel(r.LabelMap)
		if err != nil {
			return nil, err
		}

		for _, s := range relabeled {
			i, ok := index[s]
			if !ok {
				return nil, fmt.Errorf("selected statement not in canonical document: %q", s)
			}

			g.Matching[i] = s
		}
	}

	for i, s := range r.NQuads {
		if _, ok := g.Matching[i]; !ok {
			g.NonMatching[i] = s
		}
	}

	return g, nil
}

// DisclosedLabelMap returns, for the document the named group selects, the map from
// the canonical labels a verifier will compute to the labels used in NQuads.
func (r *GroupResult) DisclosedLabelMap(groupName string) (map[string]string, error) {
	g, ok := r.Groups[groupName]
	if !ok {
		return nil, fmt.Errorf("unknown group %q", groupName)
	}

	if g.selection == nil {
		return map[string]string{}, nil
	}

	canonicalIDs, err := g.selection.CanonicalLabels()
	if err != nil {
		return nil, err
	}

	disclosed := make(map[string]string, len(canonicalIDs))

	for id, canonicalLabel := range canonicalIDs {
		label, ok := r.LabelMap[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, id)
		}

		disclosed[canonicalLabel] = label
	}

	return disclosed, nil
}

// CanonicalizeAndRelabel canonicalizes doc and relabels its canonical blank nodes
// with factory, returning the sorted statements.
func CanonicalizeAndRelabel(doc map[string]interface{}, factory LabelMapFactory, opts ...Opt) ([]string, error) {
	o := prepareOpts(opts)

	dataset, err := rdfc.ToDataset(json.DeepCopyObj(doc), o.loader)
	if err != nil {
		return nil, err
	}

	canonicalIDs, err := dataset.CanonicalLabels()
	if err != nil {
		return nil, err
	}

	labels, err := factory.LabelMap(canonicalIDs)
	if err != nil {
		return nil, err
	}

	statements, err := dataset.Relabel(labels)
	if err != nil {
		return nil, err
	}

	slices.Sort(statements)

	return statements, nil
}

// skolemizeCompact expands doc, skolemizes it and compacts it back with the
// document's own context.
func skolemizeCompact(doc map[string]interface{}, skolemizer *Skolemizer,
	loader ld.DocumentLoader) (map[string]interface{}, error) {
	ldOptions := ld.NewJsonLdOptions("")
	ldOptions.ProcessingMode = ld.JsonLd_1_1
	ldOptions.DocumentLoader = loader

	expanded, err := ld.NewJsonLdProcessor().Expand(json.DeepCopyObj(doc), ldOptions)
	if err != nil {
		return nil, fmt.Errorf("expand document: %w", ldloader.WrapError(err))
	}

	skolemized := SkolemizeExpanded(expanded, skolemizer)

	ctx, ok := doc[contextKey]
	if !ok {
		ctx = map[string]interface{}{}
	}

	compacted, err := processor.Default().Compact(
		map[string]interface{}{"@graph": skolemized},
		map[string]interface{}{contextKey: json.DeepCopy(ctx)},
		processor.WithDocumentLoader(loader),
	)
	if err != nil {
		return nil, fmt.Errorf("compact skolemized document: %w", ldloader.WrapError(err))
	}

	return compacted, nil
}
