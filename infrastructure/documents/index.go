// Package documents looks up cited source documents in per-collection
// JSONL index files and turns document IDs into citation texts.
package documents

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

const (
	storeName = "documents"

	// DefaultDir is where index files are looked for when no directory is
	// configured.
	DefaultDir = "neuclir-docs-lookup"

	maxLineSize = 64 << 20
)

// NormalizeCollection rewrites the language segment of a collection ID to
// its shortest ISO 639 code, so "neuclir/1/zho" becomes "neuclir/1/zh".
// Segments that are not language codes are left alone.
func NormalizeCollection(collectionID string) string {
	i := strings.LastIndexByte(collectionID, '/')
	prefix, last := collectionID[:i+1], collectionID[i+1:]
	if last == "" {
		return collectionID
	}
	base, err := language.ParseBase(last)
	if err != nil {
		return collectionID
	}
	return prefix + base.String()
}

// IndexPath returns the index file of a collection under dir.
func IndexPath(dir, collectionID string) string {
	name := "doc_mapping_" + strings.ReplaceAll(NormalizeCollection(collectionID), "/", "_") + ".jsonl"
	return filepath.Join(dir, name)
}

type record struct {
	DocID *string `json:"doc_id"`
	ID    *string `json:"id"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
}

func (r record) key() string {
	switch {
	case r.DocID != nil:
		return *r.DocID
	case r.ID != nil:
		return *r.ID
	default:
		return ""
	}
}

type collection map[string]ports.Document

// Index implements ports.DocumentLookup over a directory of index files.
// Each collection is read at most once and then shared read-only.
type Index struct {
	dir    string
	logger *zerolog.Logger

	group singleflight.Group
	cache *gocache.Cache
}

var _ ports.DocumentLookup = (*Index)(nil)

// NewIndex returns an index rooted at dir.
func NewIndex(dir string, logger *zerolog.Logger) *Index {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Index{
		dir:    dir,
		logger: logger,
		cache:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Lookup returns the document docID of collectionID. A missing index file
// is returned as a *ports.StoreError wrapping fs.ErrNotExist.
func (x *Index) Lookup(ctx context.Context, collectionID, docID string) (ports.Document, bool, error) {
	docs, err := x.collection(ctx, NormalizeCollection(collectionID))
	if err != nil {
		return ports.Document{}, false, err
	}
	doc, ok := docs[docID]
	return doc, ok, nil
}

// Loaded reports how many collections are resident.
func (x *Index) Loaded() int { return x.cache.ItemCount() }

func (x *Index) collection(ctx context.Context, normalized string) (collection, error) {
	if v, ok := x.cache.Get(normalized); ok {
		return v.(collection), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared read outlives the caller that started it. Each waiter
	// still stops on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := x.group.DoChan(normalized, func() (any, error) {
		if v, ok := x.cache.Get(normalized); ok {
			return v, nil
		}
		docs, err := x.read(loadCtx, normalized)
		if err != nil {
			return nil, err
		}
		x.cache.Set(normalized, docs, gocache.NoExpiration)
		return docs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(collection), nil
	}
}

func (x *Index) read(ctx context.Context, normalized string) (collection, error) {
	path := IndexPath(x.dir, normalized)
	f, err := os.Open(path)
	if err != nil {
		return nil, ports.NewStoreError(storeName, path, 0, err)
	}
	defer f.Close()

	docs := make(collection)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, ports.NewStoreError(storeName, path, line, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err))
		}
		id := rec.key()
		if id == "" {
			return nil, ports.NewStoreError(storeName, path, line, fmt.Errorf("%w: missing doc_id", domain.ErrMalformedRecord))
		}
		if _, dup := docs[id]; !dup {
			docs[id] = ports.Document{Title: rec.Title, Text: rec.Text}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ports.NewStoreError(storeName, path, line+1, err)
	}

	x.logger.Debug().Str("collection", normalized).Str("path", path).Int("documents", len(docs)).Msg("document index loaded")
	return docs, nil
}
