/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ldloader

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/di-sd-go/dataintegrity"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (c *countingLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calls == nil {
		c.calls = map[string]int{}
	}

	c.calls[u]++

	if c.err != nil {
		return nil, c.err
	}

	return &ld.RemoteDocument{
		DocumentURL: u,
		Document:    map[string]interface{}{"@context": map[string]interface{}{"name": "https://schema.org/name"}},
	}, nil
}

func TestDocumentLoader(t *testing.T) {
	t.Run("loads each URL once", func(t *testing.T) {
		base := &countingLoader{}
		loader := New(base)

		for i := 0; i < 3; i++ {
			doc, err := loader.LoadDocument("https://example.com/a")
			require.NoError(t, err)
			require.Equal(t, "https://example.com/a", doc.DocumentURL)
		}

		_, err := loader.LoadDocument("https://example.com/b")
		require.NoError(t, err)

		require.Equal(t, 1, base.calls["https://example.com/a"])
		require.Equal(t, 1, base.calls["https://example.com/b"])
	})

	t.Run("concurrent use", func(t *testing.T) {
		loader := New(&countingLoader{}, WithCacheSize(2))

		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				_, err := loader.LoadDocument(fmt.Sprintf("https://example.com/%d", i%4))
				require.NoError(t, err)
			}(i)
		}

		wg.Wait()
	})

	t.Run("entries expire", func(t *testing.T) {
		base := &countingLoader{}
		loader := New(base, WithTTL(time.Millisecond))

		_, err := loader.LoadDocument("https://example.com/a")
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		_, err = loader.LoadDocument("https://example.com/a")
		require.NoError(t, err)
		require.Equal(t, 2, base.calls["https://example.com/a"])
	})

	t.Run("failure is a resolution error and is not cached", func(t *testing.T) {
		base := &countingLoader{err: errors.New("not found")}
		loader := New(base)

		_, err := loader.LoadDocument("https://example.com/missing")
		require.ErrorIs(t, err, dataintegrity.ErrResolution)
		require.ErrorContains(t, err, "not found")

		_, err = loader.LoadDocument("https://example.com/missing")
		require.Error(t, err)
		require.Equal(t, 2, base.calls["https://example.com/missing"])
	})
}

func TestWithContext(t *testing.T) {
	base := &countingLoader{}
	loader := New(base,
		WithContext("https://example.com/local", []byte(`{"@context": {"age": "https://schema.org/age"}}`)),
		WithContext("https://example.com/broken", []byte(`{`)))

	doc, err := loader.LoadDocument("https://example.com/local")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"@context": map[string]interface{}{"age": "https://schema.org/age"},
	}, doc.Document)
	require.Empty(t, base.calls)

	_, err = loader.LoadDocument("https://example.com/broken")
	require.ErrorIs(t, err, dataintegrity.ErrResolution)

	_, err = New(nil).LoadDocument("https://example.com/remote")
	require.ErrorIs(t, err, dataintegrity.ErrResolution)
}

func TestWrapError(t *testing.T) {
	require.NoError(t, WrapError(nil))

	plain := errors.New("plain")
	require.Equal(t, plain, WrapError(plain))

	err := WrapError(ld.NewJsonLdError(ld.LoadingRemoteContextFailed, "https://example.com/ctx"))
	require.ErrorIs(t, err, dataintegrity.ErrResolution)

	err = WrapError(ld.NewJsonLdError(ld.InvalidIRIMapping, "x"))
	require.NotErrorIs(t, err, dataintegrity.ErrResolution)

	wrapped := fmt.Errorf("%w: x", dataintegrity.ErrResolution)
	require.Equal(t, wrapped, WrapError(wrapped))
}
