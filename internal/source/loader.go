package source

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/hearme/internal/model"
)

// Cache stores extracted documents keyed by content hash and the limits
// they were extracted with.
type Cache interface {
	GetDocument(ctx context.Context, hash string, maxChars, pageLimit int) (model.Document, bool, error)
	SaveDocument(ctx context.Context, doc model.Document, maxChars, pageLimit int) error
}

// Loader reads files and extracts their expected text, consulting a cache
// so that a document is only parsed once per limit.
type Loader struct {
	limits Limits
	cache  Cache
	log    zerolog.Logger
}

// NewLoader returns a Loader. cache may be nil.
func NewLoader(limits Limits, cache Cache, log zerolog.Logger) *Loader {
	return &Loader{limits: limits, cache: cache, log: log}
}

// Load reads the file at path and returns its document. An empty path
// returns ErrCanceled.
func (l *Loader) Load(ctx context.Context, path string) (model.Document, error) {
	fc, err := ReadFile(path)
	if err != nil {
		return model.Document{}, err
	}
	return l.LoadContent(ctx, fc)
}

// LoadContent decodes already-picked file content.
func (l *Loader) LoadContent(ctx context.Context, fc model.FileContent) (model.Document, error) {
	if fc.Canceled {
		return model.Document{}, ErrCanceled
	}
	format := FormatForExt(fc.Ext)
	if format == model.FormatUnknown || l.cache == nil {
		return Decode(fc, l.limits)
	}

	raw, err := base64.StdEncoding.DecodeString(fc.Content)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to decode file content: %w", err)
	}
	hash := HashBytes(raw)
	maxChars := l.limits.MaxCharsFor(format)
	pageLimit := l.limits.PageLimitFor(format)

	cached, ok, err := l.cache.GetDocument(ctx, hash, maxChars, pageLimit)
	if err != nil {
		l.log.Warn().Err(err).Str("path", fc.FilePath).Msg("document cache lookup failed")
	}
	var doc model.Document
	if ok && cached.Format == format {
		l.log.Debug().Str("path", fc.FilePath).Str("hash", hash).Msg("document cache hit")
		doc = cached
		doc.Path = fc.FilePath
	} else {
		doc = model.Document{Path: fc.FilePath, Format: format, Hash: hash}
		if err := fill(&doc, raw, l.limits); err != nil {
			return model.Document{}, err
		}
	}
	if err := l.cache.SaveDocument(ctx, doc, maxChars, pageLimit); err != nil {
		l.log.Warn().Err(err).Str("path", fc.FilePath).Msg("failed to cache document")
	}
	return doc, nil
}
