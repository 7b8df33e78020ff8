/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdprimitives

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trustbloc/di-sd-go/dataintegrity/sdprimitives/rdfc"
	"github.com/trustbloc/di-sd-go/util/json"
)

const (
	idKey    = "@id"
	valueKey = "@value"
	listKey  = "@list"
	setKey   = "@set"

	blankPrefix = "_:"
)

// Element is one entry of an expanded JSON-LD document: a Literal or a Node.
type Element interface {
	toExpanded() interface{}
}

// Literal is anything in expanded form that is not a node: a scalar, or a value
// object carrying @value. It is copied through skolemization unchanged.
type Literal struct {
	Value interface{}
}

// Node is an expanded object whose property values are element sequences.
// Keyword entries other than containers (@type, @index, @language and so on) are
// kept verbatim in Keywords.
type Node struct {
	Properties map[string][]Element
	Keywords   map[string]interface{}
	// scalar holds the properties whose value was a single element rather than an array.
	scalar map[string]bool
}

// ID returns the @id of the node, if any.
func (n *Node) ID() (string, bool) {
	id, ok := n.Keywords[idKey].(string)

	return id, ok
}

// isNodeObject reports whether the object denotes a graph node, as opposed to a
// list or set container.
func (n *Node) isNodeObject() bool {
	_, isList := n.Properties[listKey]
	_, isSet := n.Properties[setKey]

	return !isList && !isSet
}

func (l *Literal) toExpanded() interface{} {
	return json.DeepCopy(l.Value)
}

func (n *Node) toExpanded() interface{} {
	obj := make(map[string]interface{}, len(n.Properties)+len(n.Keywords))

	for k, v := range n.Keywords {
		obj[k] = json.DeepCopy(v)
	}

	for k, elements := range n.Properties {
		if n.scalar[k] && len(elements) == 1 {
			obj[k] = elements[0].toExpanded()

			continue
		}

		obj[k] = ToExpanded(elements)
	}

	return obj
}

// isContainerKeyword reports whether a keyword entry holds elements to walk into.
func isContainerKeyword(key string) bool {
	switch key {
	case "@graph", listKey, setKey, "@included":
		return true
	default:
		return false
	}
}

// FromExpanded converts an expanded JSON-LD array into elements.
func FromExpanded(expanded []interface{}) []Element {
	elements := make([]Element, 0, len(expanded))

	for _, v := range expanded {
		elements = append(elements, fromValue(v))
	}

	return elements
}

func fromValue(v interface{}) Element {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return &Literal{Value: v}
	}

	if _, isValue := obj[valueKey]; isValue {
		return &Literal{Value: v}
	}

	n := &Node{
		Properties: map[string][]Element{},
		Keywords:   map[string]interface{}{},
		scalar:     map[string]bool{},
	}

	for k, pv := range obj {
		if strings.HasPrefix(k, "@") && !isContainerKeyword(k) {
			n.Keywords[k] = pv

			continue
		}

		if arr, isArr := pv.([]interface{}); isArr {
			n.Properties[k] = FromExpanded(arr)

			continue
		}

		n.Properties[k] = []Element{fromValue(pv)}
		n.scalar[k] = true
	}

	return n
}

// ToExpanded converts elements back to expanded JSON-LD.
func ToExpanded(elements []Element) []interface{} {
	out := make([]interface{}, 0, len(elements))

	for _, e := range elements {
		out = append(out, e.toExpanded())
	}

	return out
}

// Skolemizer assigns skolem IRIs to the blank nodes of expanded documents. One
// Skolemizer serves one top-level call; its counter is shared by the whole walk.
type Skolemizer struct {
	Prefix  string
	Seed    string
	counter int
}

// NewSkolemizer creates a Skolemizer with the urn:bnid: prefix. An empty seed is
// replaced by a random UUID.
func NewSkolemizer(seed string) *Skolemizer {
	if seed == "" {
		seed = uuid.New().String()
	}

	return &Skolemizer{Prefix: rdfc.SkolemPrefix, Seed: seed}
}

// Counter returns the next counter value to be assigned.
func (s *Skolemizer) Counter() int {
	return s.counter
}

// Skolemize returns copies of the elements in which every node object has an IRI:
// unlabeled nodes get prefix_seed_counter, nodes labeled "_:x" get prefix_x and
// other identifiers are kept.
func (s *Skolemizer) Skolemize(elements []Element) []Element {
	out := make([]Element, 0, len(elements))

	for _, e := range elements {
		switch el := e.(type) {
		case *Literal:
			out = append(out, &Literal{Value: json.DeepCopy(el.Value)})
		case *Node:
			out = append(out, s.skolemizeNode(el))
		}
	}

	return out
}

func (s *Skolemizer) skolemizeNode(n *Node) *Node {
	skolemized := &Node{
		Properties: make(map[string][]Element, len(n.Properties)),
		Keywords:   make(map[string]interface{}, len(n.Keywords)+1),
		scalar:     make(map[string]bool, len(n.scalar)),
	}

	for k, v := range n.Keywords {
		skolemized.Keywords[k] = json.DeepCopy(v)
	}

	for k, v := range n.scalar {
		skolemized.scalar[k] = v
	}

	// properties are walked in key order so counter values do not depend on map order
	keys := maps.Keys(n.Properties)
	slices.Sort(keys)

	for _, k := range keys {
		skolemized.Properties[k] = s.Skolemize(n.Properties[k])
	}

	if !skolemized.isNodeObject() {
		return skolemized
	}

	id, hasID := skolemized.ID()

	switch {
	case !hasID:
		skolemized.Keywords[idKey] = s.Prefix + "_" + s.Seed + "_" + strconv.Itoa(s.counter)
		s.counter++
	case strings.HasPrefix(id, blankPrefix):
		skolemized.Keywords[idKey] = s.Prefix + "_" + strings.TrimPrefix(id, blankPrefix)
	}

	return skolemized
}

// SkolemizeExpanded skolemizes an expanded JSON-LD document.
func SkolemizeExpanded(expanded []interface{}, s *Skolemizer) []interface{} {
	return ToExpanded(s.Skolemize(FromExpanded(expanded)))
}

// RelabelBlankIDs returns a copy of a compact or expanded document in which every
// blank node identifier ("_:x" under id or @id) is replaced by a fresh label _:b0,
// _:b1 and so on. Occurrences of the same label get the same replacement. Other
// values, including literals that look like blank node labels, are kept.
func RelabelBlankIDs(doc map[string]interface{}) map[string]interface{} {
	labels := map[string]string{}

	return relabelObject(doc, labels)
}

func relabelObject(obj map[string]interface{}, labels map[string]string) map[string]interface{} {
	keys := maps.Keys(obj)
	slices.Sort(keys)

	out := make(map[string]interface{}, len(obj))

	for _, k := range keys {
		id, isStr := obj[k].(string)
		if isStr && (k == idKey || k == compactID) && strings.HasPrefix(id, blankPrefix) {
			label, ok := labels[id]
			if !ok {
				label = blankPrefix + "b" + strconv.Itoa(len(labels))
				labels[id] = label
			}

			out[k] = label

			continue
		}

		out[k] = relabelBlankIDs(obj[k], labels)
	}

	return out
}

func relabelBlankIDs(doc interface{}, labels map[string]string) interface{} {
	switch v := doc.(type) {
	case map[string]interface{}:
		return relabelObject(v, labels)
	case []interface{}:
		arr := make([]interface{}, len(v))

		for i := range v {
			arr[i] = relabelBlankIDs(v[i], labels)
		}

		return arr
	default:
		return v
	}
}
