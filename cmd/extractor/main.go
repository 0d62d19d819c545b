package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/consumer"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

const snapshotInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	corpusPath := flag.String("corpus", "", "source-side corpus, one sentence per line (overrides corpus.path)")
	inputPath := flag.String("input", "-", "sentences to extract from, one per line; - reads stdin")
	lattices := flag.Bool("lattice", false, "inputs are lattices in the nested tuple format")
	precomputeOut := flag.String("precompute-out", "", "build the precomputation, write it to this file and exit")
	serve := flag.Bool("serve", false, "consume extraction requests from kafka instead of reading -input")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *inputPath, *lattices, *precomputeOut, *serve); err != nil {
		slog.Error("extractor failed", "error", err, "fatal_input", apperrors.IsFatal(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, inputPath string, lattices bool, precomputeOut string, serve bool) error {
	var m *metrics.Metrics
	var recorder extractor.Recorder
	checker := health.NewChecker()
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.NewRegistry())
		recorder = m
		shutdown := m.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/healthz": checker.LiveHandler(),
			"/readyz":  checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	vocab := phrase.NewMemoryVocabulary()
	sa, err := loadCorpus(cfg.Corpus.Path, vocab)
	if err != nil {
		return err
	}
	checker.Register("corpus", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d sentences", sa.GetData().GetNumSentences()),
		}
	})

	if precomputeOut != "" {
		return writePrecomputation(sa, cfg, precomputeOut)
	}
	pre, err := loadPrecomputation(ctx, cfg, sa, m)
	if err != nil {
		return err
	}

	engine := extractor.NewEngine(cfg.Extractor, sa, vocab, pre, recorder)
	agg := stats.NewAggregator()
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())

	var store *stats.Store
	if cfg.Postgres.Enabled {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres connect", resilience.DefaultRetryConfig(), func(ctx context.Context) error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return err
		}
		defer db.Close()
		checker.RegisterPing("postgres", true, db.DB.PingContext)
		store = stats.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	if serve {
		return serveKafka(ctx, cfg, engine, agg, store, runID)
	}
	return extractBatch(ctx, engine, agg, store, runID, inputPath, lattices)
}

func loadCorpus(path string, vocab *phrase.MemoryVocabulary) (*corpus.SuffixArray, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "no corpus given; set -corpus or corpus.path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	start := time.Now()
	data, err := corpus.Read(f, vocab)
	if err != nil {
		return nil, err
	}
	sa := corpus.NewSuffixArray(data)
	slog.Info("corpus loaded",
		"path", path,
		"sentences", data.GetNumSentences(),
		"words", data.GetSize(),
		"vocabulary", vocab.Size(),
		"duration", time.Since(start),
	)
	return sa, nil
}

func extractBatch(ctx context.Context, engine *extractor.Engine, agg *stats.Aggregator, store *stats.Store,
	runID, inputPath string, lattices bool) error {
	var r io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}
	inputs, err := extractor.ReadInputs(r, lattices)
	if err != nil {
		return err
	}

	summaries, err := engine.ExtractBatch(ctx, inputs)
	if err != nil {
		agg.RecordFailure()
		return err
	}
	out := json.NewEncoder(os.Stdout)
	for _, s := range summaries {
		agg.Record(s)
		if err := out.Encode(s); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	totals := agg.Stats()
	slog.Info("extraction finished",
		"run_id", runID,
		"sentences", totals.Sentences,
		"patterns", totals.Patterns,
		"gapped", totals.Gapped,
		"occurrences", totals.Occurrences,
		"p95_latency_ms", totals.P95LatencyMs,
	)
	if store != nil {
		return store.SaveRun(ctx, runID, totals)
	}
	return nil
}

func serveKafka(ctx context.Context, cfg *config.Config, engine *extractor.Engine, agg *stats.Aggregator,
	store *stats.Store, runID string) error {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ExtractResults)
	defer producer.Close()

	if store != nil {
		saveCtx, stopSaving := context.WithCancel(ctx)
		wait := store.StartPeriodicSave(saveCtx, runID, agg, snapshotInterval)
		defer func() {
			stopSaving()
			wait()
		}()
	}

	handler := consumer.HandleMessage(engine, producer, agg)
	ec := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ExtractRequests, handler))
	slog.Info("extractor ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ExtractRequests,
		"group", cfg.Kafka.ConsumerGroup,
		"results_topic", cfg.Kafka.Topics.ExtractResults,
	)
	if err := ec.Start(ctx); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	slog.Info("extractor stopped", "run_id", runID, "sentences", agg.Stats().Sentences)
	return nil
}
