/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rdfc adapts JSON-LD to RDF conversion and URDNA2015 canonicalization to
// statement lists, and reports which canonical label each input blank node received.
package rdfc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/did-go/doc/ld/processor"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trustbloc/di-sd-go/ldloader"
)

// SkolemPrefix is the IRI prefix of skolemized blank nodes.
const SkolemPrefix = "urn:bnid:"

const (
	blankPrefix  = "_:"
	defaultGraph = "@default"
)

var logger = log.New("di-sd-go/rdfc")

// ErrUnknownBlankNode is returned when a blank node has no assigned label.
var ErrUnknownBlankNode = errors.New("unknown blank node")

// Canonicalize returns the URDNA2015 canonical statements of a JSON-LD document,
// sorted, with blank nodes labeled c14n0, c14n1 and so on.
func Canonicalize(doc map[string]interface{}, loader ld.DocumentLoader) ([]string, error) {
	out, err := processor.Default().GetCanonicalDocument(doc, processor.WithDocumentLoader(loader))
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", ldloader.WrapError(err))
	}

	return SplitStatements(string(out)), nil
}

// SplitStatements splits serialized N-Quads into statements, each keeping its
// trailing newline.
func SplitStatements(nquads string) []string {
	var statements []string

	for _, line := range strings.SplitAfter(nquads, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}

		statements = append(statements, line)
	}

	return statements
}

// Dataset is the RDF form of a JSON-LD document in the order the JSON-LD processor
// emits its quads. Skolem IRIs in subject, object and graph position are held as
// blank nodes; literals are kept as they are, whatever their value.
type Dataset struct {
	quads []*ld.Quad
}

// ToDataset converts a JSON-LD document (compact or expanded) to RDF.
func ToDataset(doc interface{}, loader ld.DocumentLoader) (*Dataset, error) {
	ldOptions := ld.NewJsonLdOptions("")
	ldOptions.ProcessingMode = ld.JsonLd_1_1
	ldOptions.ProduceGeneralizedRdf = true
	ldOptions.DocumentLoader = loader

	view, err := ld.NewJsonLdProcessor().ToRDF(doc, ldOptions)
	if err != nil {
		return nil, fmt.Errorf("convert JSON-LD to RDF: %w", ldloader.WrapError(err))
	}

	rdf, ok := view.(*ld.RDFDataset)
	if !ok {
		return nil, errors.New("convert JSON-LD to RDF: unexpected view")
	}

	d := &Dataset{}

	graphNames := maps.Keys(rdf.Graphs)
	slices.Sort(graphNames)

	for _, graphName := range graphNames {
		for _, q := range rdf.Graphs[graphName] {
			d.quads = append(d.quads, &ld.Quad{
				Subject:   deskolemize(q.Subject),
				Predicate: q.Predicate,
				Object:    deskolemize(q.Object),
				Graph:     deskolemize(graphNode(graphName)),
			})
		}
	}

	return d, nil
}

// Len returns the number of quads.
func (d *Dataset) Len() int {
	return len(d.quads)
}

// CanonicalLabels runs URDNA2015 over the dataset and returns, for every blank
// node, its canonical label without the "_:" prefix (such as "c14n0"). Blank nodes
// are keyed by their skolem IRI, or by their label without "_:" when they were
// blank in the document.
func (d *Dataset) CanonicalLabels() (map[string]string, error) {
	working := make([]*ld.Quad, len(d.quads))
	input := ld.NewRDFDataset()
	delete(input.Graphs, defaultGraph)

	for i, q := range d.quads {
		working[i] = &ld.Quad{
			Subject:   copyNode(q.Subject),
			Predicate: q.Predicate,
			Object:    copyNode(q.Object),
		}

		name := defaultGraph
		if q.Graph != nil {
			name = q.Graph.GetValue()
		}

		input.Graphs[name] = append(input.Graphs[name], working[i])
	}

	ld.NewNormalisationAlgorithm(ld.AlgorithmURDNA2015, ld.MessageDigestAlgorithmSHA256).Normalize(input)

	labels := map[string]string{}

	for i, q := range d.quads {
		pairs := [][2]ld.Node{
			{q.Subject, working[i].Subject},
			{q.Object, working[i].Object},
			{q.Graph, working[i].Graph},
		}

		for _, pair := range pairs {
			key, ok := blankKey(pair[0])
			if !ok {
				continue
			}

			canonical := strings.TrimPrefix(pair[1].GetValue(), blankPrefix)

			if prev, seen := labels[key]; seen && prev != canonical {
				return nil, fmt.Errorf("blank node %s has canonical labels %s and %s", key, prev, canonical)
			}

			labels[key] = canonical
		}
	}

	logger.Debugf("canonicalized %d quads with %d blank nodes", len(d.quads), len(labels))

	return labels, nil
}

// Relabel serializes the quads in order with every blank node renamed to "_:" plus
// its entry in labels.
func (d *Dataset) Relabel(labels map[string]string) ([]string, error) {
	statements := make([]string, 0, len(d.quads))

	for _, q := range d.quads {
		relabeled := &ld.Quad{Predicate: q.Predicate}

		var err error

		if relabeled.Subject, err = relabel(q.Subject, labels); err != nil {
			return nil, err
		}

		if relabeled.Object, err = relabel(q.Object, labels); err != nil {
			return nil, err
		}

		if relabeled.Graph, err = relabel(q.Graph, labels); err != nil {
			return nil, err
		}

		s, err := serialize(relabeled)
		if err != nil {
			return nil, err
		}

		statements = append(statements, s)
	}

	return statements, nil
}

func relabel(node ld.Node, labels map[string]string) (ld.Node, error) {
	key, ok := blankKey(node)
	if !ok {
		return node, nil
	}

	label, ok := labels[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlankNode, key)
	}

	return ld.NewBlankNode(blankPrefix + label), nil
}

// serialize writes a single quad as an N-Quads statement.
func serialize(q *ld.Quad) (string, error) {
	name := defaultGraph
	if q.Graph != nil {
		name = q.Graph.GetValue()
	}

	single := ld.NewRDFDataset()
	delete(single.Graphs, defaultGraph)
	single.Graphs[name] = []*ld.Quad{q}

	out, err := (&ld.NQuadRDFSerializer{}).Serialize(single)
	if err != nil {
		return "", fmt.Errorf("serialize quad: %w", err)
	}

	s, ok := out.(string)
	if !ok {
		return "", errors.New("serialize quad: unexpected output")
	}

	return s, nil
}

// deskolemize turns a skolem IRI into a blank node labeled with the IRI.
func deskolemize(node ld.Node) ld.Node {
	if iri, ok := node.(*ld.IRI); ok && strings.HasPrefix(iri.Value, SkolemPrefix) {
		return ld.NewBlankNode(blankPrefix + iri.Value)
	}

	return node
}

func blankKey(node ld.Node) (string, bool) {
	bn, ok := node.(*ld.BlankNode)
	if !ok {
		return "", false
	}

	return strings.TrimPrefix(bn.Attribute, blankPrefix), true
}

func copyNode(node ld.Node) ld.Node {
	if bn, ok := node.(*ld.BlankNode); ok {
		return ld.NewBlankNode(bn.Attribute)
	}

	return node
}

func graphNode(name string) ld.Node {
	switch {
	case name == defaultGraph || name == "":
		return nil
	case strings.HasPrefix(name, blankPrefix):
		return ld.NewBlankNode(name)
	default:
		return ld.NewIRI(name)
	}
}
