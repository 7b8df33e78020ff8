/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testJSON struct {
	S []string `json:"stringSlice"`
	I int      `json:"intValue"`
}

func TestShallowCopyObj(t *testing.T) {
	src := map[string]interface{}{
		"a": "b",
		"c": map[string]interface{}{"d": "e"},
	}

	cp := ShallowCopyObj(src)
	require.Equal(t, src, cp)

	cp["a"] = "changed"
	require.Equal(t, "b", src["a"])
}

func TestCopyExcept(t *testing.T) {
	src := map[string]interface{}{
		"proof": map[string]interface{}{"type": "DataIntegrityProof"},
		"id":    "urn:uuid:1",
	}

	cp := CopyExcept(src, "proof")
	require.Equal(t, map[string]interface{}{"id": "urn:uuid:1"}, cp)
	require.Contains(t, src, "proof")
}

func TestDeepCopy(t *testing.T) {
	src := map[string]interface{}{
		"credentialSubject": map[string]interface{}{
			"sails": []interface{}{
				map[string]interface{}{"size": 5.5},
				"x",
			},
		},
		"n": 1.0,
	}

	cp := DeepCopyObj(src)
	require.Equal(t, src, cp)

	cs := cp["credentialSubject"].(map[string]interface{})
	sails := cs["sails"].([]interface{})
	sails[0].(map[string]interface{})["size"] = 7.0
	sails[1] = "y"

	srcSails := src["credentialSubject"].(map[string]interface{})["sails"].([]interface{})
	require.Equal(t, 5.5, srcSails[0].(map[string]interface{})["size"])
	require.Equal(t, "x", srcSails[1])

	require.Nil(t, DeepCopyObj(nil))
	require.Equal(t, "scalar", DeepCopy("scalar"))
}

func TestToMap(t *testing.T) {
	t.Run("from struct", func(t *testing.T) {
		m, err := ToMap(&testJSON{S: []string{"a"}, I: 7})
		require.NoError(t, err)
		require.Equal(t, map[string]interface{}{
			"stringSlice": []interface{}{"a"},
			"intValue":    7.0,
		}, m)
	})

	t.Run("from string and bytes", func(t *testing.T) {
		m, err := ToMap(`{"a":"b"}`)
		require.NoError(t, err)
		require.Equal(t, "b", m["a"])

		m, err = ToMap([]byte(`{"a":"c"}`))
		require.NoError(t, err)
		require.Equal(t, "c", m["a"])
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ToMap("not JSON")
		require.Error(t, err)

		_, err = ToMap(make(chan int))
		require.Error(t, err)
	})
}
