package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"funnel-mcp/internal/cohort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const loadConcurrency = 8

type cachedDoc struct {
	modTime time.Time
	size    int64
	doc     *ParamDocument
}

// ParamStore loads per-edge parameter documents from a directory. Decoded
// files are cached and reused until their size or modification time changes.
type ParamStore struct {
	dir   string
	cache *lru.Cache[string, cachedDoc]
}

// NewParamStore creates a store over dir caching up to cacheSize documents.
func NewParamStore(dir string, cacheSize int) (*ParamStore, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, cachedDoc](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create param cache: %w", err)
	}
	return &ParamStore{dir: dir, cache: cache}, nil
}

// Load reads every .json, .yaml and .yml document in the directory and merges
// them into a lookup. Several files may contribute rows for the same edge;
// rows keep file-name order.
func (s *ParamStore) Load(ctx context.Context) (cohort.Lookup, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read param dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatFor(e.Name()); err == nil {
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(paths)

	docs := make([]*ParamDocument, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := s.loadFile(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := make(cohort.Lookup)
	rows := 0
	for _, doc := range docs {
		lookup[doc.EdgeID] = append(lookup[doc.EdgeID], doc.Values...)
		rows += len(doc.Values)
	}

	log.Debug().Str("dir", s.dir).Int("files", len(paths)).Int("edges", len(lookup)).Int("rows", rows).Msg("Loaded parameter documents")
	return lookup, nil
}

func (s *ParamStore) loadFile(path string) (*ParamDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if cached, ok := s.cache.Get(path); ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.doc, nil
	}

	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := DecodeParams(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.cache.Add(path, cachedDoc{modTime: info.ModTime(), size: info.Size(), doc: doc})
	return doc, nil
}

// LoadParamDir is a one-shot Load without a long-lived cache.
func LoadParamDir(ctx context.Context, dir string) (cohort.Lookup, error) {
	s, err := NewParamStore(dir, 0)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx)
}
