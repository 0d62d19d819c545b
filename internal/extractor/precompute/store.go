package precompute

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/redis"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "precomputation:"

// Stored segments are zstd frames around the segment encoding.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	decoder, _ = zstd.NewReader(nil)
)

// SegmentClient is the subset of the redis client the store needs.
type SegmentClient interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Store keeps encoded segments in Redis so workers and restarts share one
// build. Concurrent loads of the same name are collapsed into one fetch.
type Store struct {
	client SegmentClient
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewStore returns a Store writing entries with the given ttl.
func NewStore(client SegmentClient, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "precompute-store"),
	}
}

// Save compresses and stores p under name.
func (s *Store) Save(ctx context.Context, name string, p *Precomputation) error {
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	data := encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := s.client.Set(ctx, s.key(name), data, s.ttl); err != nil {
		return fmt.Errorf("storing precomputation %s: %w", name, err)
	}
	s.logger.Info("precomputation stored", "name", name, "bytes", len(data), "raw_bytes", len(raw))
	return nil
}

// Load returns the precomputation saved under name, or ErrNotFound.
func (s *Store) Load(ctx context.Context, name string) (*Precomputation, error) {
	key := s.key(name)
	val, err, shared := s.group.Do(key, func() (any, error) {
		data, err := s.client.GetBytes(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil, apperrors.Newf(apperrors.ErrNotFound, "precomputation %s", name)
			}
			return nil, fmt.Errorf("fetching precomputation %s: %w", name, err)
		}
		raw, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "decompressing precomputation %s: %v", name, err)
		}
		return Decode(raw)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("precomputation loaded", "name", name, "shared", shared)
	return val.(*Precomputation), nil
}

// LoadOrBuild returns the stored precomputation if it matches want, building
// and saving it on a miss. A stored copy built from another corpus or with
// other options is replaced. The boolean reports whether the stored copy was
// used. A failure to save is logged and does not fail the call.
func (s *Store) LoadOrBuild(ctx context.Context, name string, want Provenance, build func() (*Precomputation, error)) (*Precomputation, bool, error) {
	p, err := s.Load(ctx, name)
	if err == nil {
		err = p.Check(want)
		if err == nil {
			return p, true, nil
		}
		s.logger.Warn("stored precomputation is stale, rebuilding", "name", name, "error", err)
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}
	val, err, _ := s.group.Do("build:"+name, func() (any, error) {
		p, err := build()
		if err != nil {
			return nil, err
		}
		if err := s.Save(ctx, name, p); err != nil {
			s.logger.Error("precomputation save failed", "name", name, "error", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Precomputation), false, nil
}

// Purge deletes every stored precomputation.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	deleted, err := s.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("purging precomputations: %w", err)
	}
	s.logger.Info("precomputations purged", "keys_deleted", deleted)
	return deleted, nil
}

func (s *Store) key(name string) string {
	return keyPrefix + name
}
