/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ldloader wraps JSON-LD document loaders with an expiring cache and maps
// their failures to dataintegrity.ErrResolution.
package ldloader

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/piprate/json-gold/ld"

	"github.com/trustbloc/di-sd-go/dataintegrity"
)

const (
	defaultCacheSize = 100
	defaultTTL       = time.Hour
)

var logger = log.New("di-sd-go/ldloader")

type options struct {
	cacheSize int
	ttl       time.Duration
	contexts  map[string][]byte
}

// Opts configures the caching loader.
type Opts func(opts *options)

// WithCacheSize sets the maximum number of cached documents.
func WithCacheSize(size int) Opts {
	return func(opts *options) {
		opts.cacheSize = size
	}
}

// WithTTL sets how long a loaded document stays cached. Zero disables expiry.
func WithTTL(ttl time.Duration) Opts {
	return func(opts *options) {
		opts.ttl = ttl
	}
}

// WithContext serves content for u without calling the base loader.
func WithContext(u string, content []byte) Opts {
	return func(opts *options) {
		if opts.contexts == nil {
			opts.contexts = map[string][]byte{}
		}

		opts.contexts[u] = content
	}
}

// DocumentLoader caches the documents returned by a base loader. It is safe for
// concurrent use.
type DocumentLoader struct {
	base     ld.DocumentLoader
	cache    *expirable.LRU[string, *ld.RemoteDocument]
	contexts map[string][]byte
}

// New wraps base with a cache.
func New(base ld.DocumentLoader, opts ...Opts) *DocumentLoader {
	o := &options{
		cacheSize: defaultCacheSize,
		ttl:       defaultTTL,
	}

	for _, opt := range opts {
		opt(o)
	}

	return &DocumentLoader{
		base:     base,
		cache:    expirable.NewLRU[string, *ld.RemoteDocument](o.cacheSize, nil, o.ttl),
		contexts: o.contexts,
	}
}

// LoadDocument returns the document at u, from cache when present.
func (l *DocumentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	if doc, ok := l.cache.Get(u); ok {
		return doc, nil
	}

	doc, err := l.load(u)
	if err != nil {
		logger.Debugf("failed to load JSON-LD document %s: %v", u, err)

		return nil, fmt.Errorf("%w: %s: %w", dataintegrity.ErrResolution, u, err)
	}

	l.cache.Add(u, doc)

	return doc, nil
}

func (l *DocumentLoader) load(u string) (*ld.RemoteDocument, error) {
	content, ok := l.contexts[u]
	if !ok {
		if l.base == nil {
			return nil, errors.New("no loader for remote documents")
		}

		return l.base.LoadDocument(u)
	}

	doc, err := ld.DocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse local context: %w", err)
	}

	return &ld.RemoteDocument{DocumentURL: u, Document: doc}, nil
}

// WrapError marks JSON-LD processing errors caused by document loading with
// dataintegrity.ErrResolution. Other errors are returned unchanged.
func WrapError(err error) error {
	if err == nil || errors.Is(err, dataintegrity.ErrResolution) {
		return err
	}

	var ldErr *ld.JsonLdError

	if errors.As(err, &ldErr) &&
		(ldErr.Code == ld.LoadingDocumentFailed || ldErr.Code == ld.LoadingRemoteContextFailed) {
		return fmt.Errorf("%w: %w", dataintegrity.ErrResolution, err)
	}

	return err
}
