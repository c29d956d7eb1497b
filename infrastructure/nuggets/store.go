// Package nuggets reads gold nugget sets from newline-delimited JSON files.
//
// Each line of a nugget file is one set:
//
//	{"query_id": "300", "items": [{"question_id": 1, "question_text": "...", "gold_answers": [...], "info": {...}}]}
//
// query_id may be a JSON string or number and is always matched as a string.
package nuggets

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

const (
	storeName = "nuggets"

	// MaxLineSize bounds a single JSONL record.
	MaxLineSize = 8 << 20
)

// Load streams path and returns the first set whose query_id equals
// requestID. A malformed line before the match is an error that names the
// line.
func Load(ctx context.Context, path, requestID string) (domain.NuggetSet, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.NuggetSet{}, false, ports.NewStoreError(storeName, path, 0, err)
	}
	defer f.Close()

	var (
		found domain.NuggetSet
		ok    bool
	)
	err = scan(ctx, f, path, func(set domain.NuggetSet) bool {
		if set.QueryID.String() == requestID {
			found, ok = set, true
			return false
		}
		return true
	})
	if err != nil {
		return domain.NuggetSet{}, false, err
	}
	return found, ok, nil
}

// scan decodes each non-blank line of r and hands it to fn until fn returns
// false.
func scan(ctx context.Context, r io.Reader, path string, fn func(domain.NuggetSet) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var set domain.NuggetSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return ports.NewStoreError(storeName, path, line, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err))
		}
		if !fn(set) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return ports.NewStoreError(storeName, path, line+1, err)
	}
	return nil
}

// FileStore implements ports.NuggetSource over one nugget file. The file is
// indexed on first use; every lookup returns a private deep copy.
type FileStore struct {
	path   string
	logger *zerolog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	index *index
}

type index struct {
	sets map[string]domain.NuggetSet
	ids  []string
}

var _ ports.NuggetSource = (*FileStore)(nil)

// NewFileStore returns a store for path. Nothing is read until the first
// lookup.
func NewFileStore(path string, logger *zerolog.Logger) *FileStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FileStore{path: path, logger: logger}
}

// Nuggets returns a copy of the set for requestID.
func (s *FileStore) Nuggets(ctx context.Context, requestID string) (domain.NuggetSet, bool, error) {
	idx, err := s.load(ctx)
	if err != nil {
		return domain.NuggetSet{}, false, err
	}
	set, ok := idx.sets[requestID]
	if !ok {
		return domain.NuggetSet{}, false, nil
	}
	return set.Clone(), true, nil
}

// Suggest returns the indexed query_id closest to requestID by edit
// distance, or "" when none is within a plausible typo distance.
func (s *FileStore) Suggest(ctx context.Context, requestID string) string {
	idx, err := s.load(ctx)
	if err != nil {
		return ""
	}
	return closest(requestID, idx.ids)
}

// IDs returns every indexed query_id in file order.
func (s *FileStore) IDs(ctx context.Context) ([]string, error) {
	idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), idx.ids...), nil
}

func (s *FileStore) load(ctx context.Context) (*index, error) {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.path, func() (any, error) {
		s.mu.RLock()
		cached := s.index
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		built, err := s.build(loadCtx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.index = built
		s.mu.Unlock()
		return built, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*index), nil
	}
}

func (s *FileStore) build(ctx context.Context) (*index, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, ports.NewStoreError(storeName, s.path, 0, err)
	}
	defer f.Close()

	idx := &index{sets: make(map[string]domain.NuggetSet)}
	err = scan(ctx, f, s.path, func(set domain.NuggetSet) bool {
		id := set.QueryID.String()
		if _, dup := idx.sets[id]; dup {
			s.logger.Warn().Str("query_id", id).Str("path", s.path).Msg("duplicate nugget set ignored")
			return true
		}
		idx.sets[id] = set
		idx.ids = append(idx.ids, id)
		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("path", s.path).Int("sets", len(idx.ids)).Msg("nugget file indexed")
	return idx, nil
}

// closest picks the candidate with the smallest edit distance to target,
// breaking ties lexically.
func closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	type scored struct {
		id   string
		dist int
	}
	scoredIDs := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredIDs = append(scoredIDs, scored{c, levenshtein.ComputeDistance(target, c)})
	}
	sort.Slice(scoredIDs, func(i, j int) bool {
		if scoredIDs[i].dist != scoredIDs[j].dist {
			return scoredIDs[i].dist < scoredIDs[j].dist
		}
		return scoredIDs[i].id < scoredIDs[j].id
	})

	best := scoredIDs[0]
	if best.dist == 0 || best.dist > max(2, len(target)/3) {
		return ""
	}
	return best.id
}
