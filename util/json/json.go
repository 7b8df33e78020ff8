/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"encoding/json"

	"golang.org/x/exp/maps"
)

// ShallowCopyObj creates new json object with copied fields form provided object.
func ShallowCopyObj(json map[string]interface{}) map[string]interface{} {
	return maps.Clone(json)
}

// CopyExcept copies all fields except fields with given names.
func CopyExcept(json map[string]interface{}, flds ...string) map[string]interface{} {
	newJSON := ShallowCopyObj(json)

	for _, fld := range flds {
		delete(newJSON, fld)
	}

	return newJSON
}

// DeepCopy returns a copy of a JSON value (as produced by encoding/json) sharing no
// maps or slices with the source.
func DeepCopy(v interface{}) interface{} {
	switch cv := v.(type) {
	case map[string]interface{}:
		return DeepCopyObj(cv)
	case []interface{}:
		arr := make([]interface{}, len(cv))

		for i := range cv {
			arr[i] = DeepCopy(cv[i])
		}

		return arr
	default:
		return v
	}
}

// DeepCopyObj returns a deep copy of json object. Nil stays nil.
func DeepCopyObj(json map[string]interface{}) map[string]interface{} {
	if json == nil {
		return nil
	}

	obj := make(map[string]interface{}, len(json))

	for k, v := range json {
		obj[k] = DeepCopy(v)
	}

	return obj
}

// ToMap convert object, string or bytes to json object represented by map.
func ToMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	var m map[string]interface{}

	err = json.Unmarshal(b, &m)
	if err != nil {
		return nil, err
	}

	return m, nil
}
