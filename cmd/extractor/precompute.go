package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/precompute"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/resilience"
)

func buildOptions(cfg *config.Config) precompute.BuildOptions {
	return precompute.BuildOptions{
		MinFrequency:    cfg.Corpus.FrequentMinCount,
		MaxPhraseLen:    cfg.Corpus.MaxFrequentPhraseLen,
		MaxPhrases:      cfg.Corpus.MaxFrequentPhrases,
		MinGapSize:      cfg.Extractor.MinGapSize,
		MaxRuleSpan:     cfg.Extractor.MaxRuleSpan,
		MaxNonterminals: cfg.Extractor.MaxNonterminals,
	}
}

func writePrecomputation(sa *corpus.SuffixArray, cfg *config.Config, path string) error {
	p := precompute.Build(sa, buildOptions(cfg))
	if err := precompute.WriteFile(path, p); err != nil {
		return err
	}
	contiguous, collocations := p.Size()
	slog.Info("precomputation written", "path", path, "contiguous", contiguous, "collocations", collocations)
	return nil
}

// loadPrecomputation tries the segment file, then redis, then builds in
// memory. It returns nil when frequent-phrase precomputation is disabled.
func loadPrecomputation(ctx context.Context, cfg *config.Config, sa *corpus.SuffixArray, m *metrics.Metrics) (*precompute.Precomputation, error) {
	observe := func(source string) {
		if m != nil {
			m.ObservePrecomputationLoad(source)
		}
	}

	want := precompute.Fingerprint(sa.GetData(), buildOptions(cfg))
	if path := cfg.Corpus.PrecomputationPath; path != "" {
		p, err := precompute.ReadFile(path, want)
		if err == nil {
			observe("file")
			slog.Info("precomputation loaded", "source", "file", "path", path)
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading precomputation %s: %w", path, err)
		}
		slog.Warn("precomputation file missing, falling back", "path", path)
	}

	if cfg.Corpus.FrequentMinCount <= 0 {
		return nil, nil
	}
	build := func() (*precompute.Precomputation, error) {
		start := time.Now()
		p := precompute.Build(sa, buildOptions(cfg))
		slog.Info("precomputation built", "duration", time.Since(start))
		return p, nil
	}

	if !cfg.Redis.Enabled {
		observe("build")
		return build()
	}
	var client *redis.Client
	err := resilience.Retry(ctx, "redis connect", resilience.DefaultRetryConfig(), func(context.Context) error {
		var err error
		client, err = redis.NewClient(cfg.Redis)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	p, cached, err := precompute.NewStore(client, cfg.Redis.TTL).LoadOrBuild(ctx, cfg.Corpus.PrecomputationKey, want, build)
	if err != nil {
		return nil, err
	}
	if cached {
		observe("redis")
	} else {
		observe("build")
	}
	return p, nil
}
