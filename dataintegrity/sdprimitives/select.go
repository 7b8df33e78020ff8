/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdprimitives

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trustbloc/di-sd-go/dataintegrity"
	"github.com/trustbloc/di-sd-go/util/json"
)

const (
	contextKey = "@context"
	compactID  = "id"
	typeKey    = "type"
)

// sparseArray is an array under construction in a selection; only the selected
// indexes are set.
type sparseArray map[int]interface{}

// Select returns the smallest compact document holding the values the pointers
// point to, with the id (unless blank) and type of every node on the way and the
// @context of the document. Selected array elements keep their relative order
// with unselected slots removed. Select returns nil for no pointers.
func Select(doc map[string]interface{}, pointers []string) (map[string]interface{}, error) {
	if len(pointers) == 0 {
		return nil, nil
	}

	selection := initSelection(doc)

	if ctx, ok := doc[contextKey]; ok {
		selection[contextKey] = json.DeepCopy(ctx)
	}

	for _, p := range pointers {
		pointer, err := ParsePointer(p)
		if err != nil {
			return nil, err
		}

		if err := selectPointer(doc, selection, pointer); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", dataintegrity.ErrPointerResolution, p, err)
		}
	}

	densified, ok := densify(selection).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: selection is not an object", dataintegrity.ErrPointerResolution)
	}

	return densified, nil
}

func initSelection(source map[string]interface{}) map[string]interface{} {
	selection := map[string]interface{}{}

	if id, ok := source[compactID].(string); ok && !strings.HasPrefix(id, blankPrefix) {
		selection[compactID] = id
	}

	if t, ok := source[typeKey]; ok {
		selection[typeKey] = json.DeepCopy(t)
	}

	return selection
}

func selectPointer(doc, selection map[string]interface{}, pointer Pointer) error {
	if len(pointer) == 0 {
		for k, v := range json.DeepCopyObj(doc) {
			selection[k] = v
		}

		return nil
	}

	var (
		value          interface{} = doc
		selected       interface{} = selection
		selectedParent interface{}
	)

	for _, token := range pointer {
		selectedParent = selected

		next, ok := child(value, token)
		if !ok {
			return fmt.Errorf("no value at %q", token.Key)
		}

		value = next

		current, ok := child(selectedParent, token)
		if !ok {
			switch v := value.(type) {
			case []interface{}:
				current = sparseArray{}
			case map[string]interface{}:
				current = initSelection(v)
			default:
				current = nil
			}

			setChild(selectedParent, token, current)
		}

		selected = current
	}

	switch v := value.(type) {
	case []interface{}:
		selected = json.DeepCopy(v)
	case map[string]interface{}:
		merged, ok := selected.(map[string]interface{})
		if !ok {
			merged = map[string]interface{}{}
		}

		for k, fv := range json.DeepCopyObj(v) {
			merged[k] = fv
		}

		selected = merged
	default:
		selected = v
	}

	setChild(selectedParent, pointer[len(pointer)-1], selected)

	return nil
}

// child looks a token up in an object, an array or a sparse array.
func child(container interface{}, token PathToken) (interface{}, bool) {
	switch c := container.(type) {
	case map[string]interface{}:
		v, ok := c[token.Key]

		return v, ok
	case []interface{}:
		if !token.IsIndex || token.Index >= len(c) {
			return nil, false
		}

		return c[token.Index], true
	case sparseArray:
		if !token.IsIndex {
			return nil, false
		}

		v, ok := c[token.Index]

		return v, ok
	default:
		return nil, false
	}
}

func setChild(container interface{}, token PathToken, value interface{}) {
	switch c := container.(type) {
	case map[string]interface{}:
		c[token.Key] = value
	case []interface{}:
		c[token.Index] = value
	case sparseArray:
		c[token.Index] = value
	}
}

func densify(v interface{}) interface{} {
	switch c := v.(type) {
	case map[string]interface{}:
		for k, fv := range c {
			c[k] = densify(fv)
		}

		return c
	case []interface{}:
		for i := range c {
			c[i] = densify(c[i])
		}

		return c
	case sparseArray:
		indexes := maps.Keys(c)
		slices.Sort(indexes)

		arr := make([]interface{}, 0, len(indexes))

		for _, i := range indexes {
			arr = append(arr, densify(c[i]))
		}

		return arr
	default:
		return v
	}
}
