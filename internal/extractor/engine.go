// Package extractor runs pattern extraction over batches of input sentences.
// The corpus, suffix array and precomputation are shared read-only; every
// sentence gets its own intersector and finder.
package extractor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/corpus"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/finder"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/intersector"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/lattice"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/phrase"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor/precompute"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Recorder extends the intersector instrumentation with per-sentence totals.
type Recorder interface {
	intersector.Recorder
	ObserveSentence(status string, nodes, patterns int, d time.Duration)
}

type nopRecorder struct {
	intersector.NopRecorder
}

func (nopRecorder) ObserveSentence(string, int, int, time.Duration) {}

// Input is one sentence to extract from. Text is a plain sentence unless
// Lattice is set, in which case it is in the nested tuple lattice format.
type Input struct {
	ID      string `json:"id"`
	Line    int    `json:"line,omitempty"`
	Text    string `json:"input"`
	Lattice bool   `json:"lattice,omitempty"`
}

// Summary describes the patterns found for one input.
type Summary struct {
	ID          string        `json:"id"`
	Nodes       int           `json:"nodes"`
	Patterns    int           `json:"patterns"`
	Gapped      int           `json:"gapped"`
	Occurrences int           `json:"occurrences"`
	Duration    time.Duration `json:"duration_ns"`
}

// Result is a Summary plus the patterns it counts.
type Result struct {
	Summary
	Found []finder.Pattern
}

// Engine extracts patterns from sentences against one corpus.
type Engine struct {
	cfg            config.ExtractorConfig
	sa             *corpus.SuffixArray
	vocab          phrase.Vocabulary
	precomputation intersector.Precomputation
	recorder       Recorder
	logger         *slog.Logger
}

// NewEngine returns an engine over sa. pre and recorder may be nil.
func NewEngine(cfg config.ExtractorConfig, sa *corpus.SuffixArray, vocab phrase.Vocabulary,
	pre *precompute.Precomputation, recorder Recorder) *Engine {
	e := &Engine{
		cfg:      cfg,
		sa:       sa,
		vocab:    vocab,
		recorder: recorder,
		logger:   slog.Default().With("component", "extractor"),
	}
	if pre != nil {
		e.precomputation = pre
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	return e
}

// ExtractSentence finds every pattern of in that occurs in the corpus.
// Malformed lattices are returned as fatal errors carrying the input line.
func (e *Engine) ExtractSentence(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	log := logger.FromContext(logger.WithSentenceID(ctx, in.ID))

	l, err := lattice.New(in.Text, e.vocab, !in.Lattice)
	if err != nil {
		e.recorder.ObserveSentence("error", 0, 0, time.Since(start))
		return Result{}, fmt.Errorf("input line %d: %w", in.Line, err)
	}

	ix := intersector.NewDefault(e.vocab, e.precomputation, e.sa, intersector.Config{
		MinGapSize:       e.cfg.MinGapSize,
		MaxRuleSpan:      e.cfg.MaxRuleSpan,
		UseBaezaYates:    e.cfg.UseBaezaYates,
		BaezaYatesFactor: e.cfg.BaezaYatesFactor,
	}, e.recorder)
	f := finder.New(e.vocab, e.sa, ix, finder.Options{
		MinGapSize:      e.cfg.MinGapSize,
		MaxRuleSpan:     e.cfg.MaxRuleSpan,
		MaxPhraseLen:    e.cfg.MaxPhraseLen,
		MaxNonterminals: e.cfg.MaxNonterminals,
	})
	patterns := f.Find(l)

	res := Result{
		Summary: Summary{ID: in.ID, Nodes: l.Size(), Patterns: len(patterns)},
		Found:   patterns,
	}
	for _, p := range patterns {
		if p.Phrase.Arity() > 0 {
			res.Gapped++
		}
		res.Occurrences += p.Location.Size()
	}
	res.Duration = time.Since(start)
	e.recorder.ObserveSentence("ok", res.Nodes, res.Patterns, res.Duration)

	log.Debug("sentence extracted",
		"nodes", res.Nodes,
		"patterns", res.Patterns,
		"gapped", res.Gapped,
		"occurrences", res.Occurrences,
		"duration", res.Duration,
	)
	return res, nil
}

// ExtractBatch extracts every input with at most cfg.Workers sentences in
// flight. Summaries are returned in input order. The first failing input
// cancels the rest of the batch.
func (e *Engine) ExtractBatch(ctx context.Context, inputs []Input) ([]Summary, error) {
	summaries := make([]Summary, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := e.ExtractSentence(gctx, in)
			if err != nil {
				return err
			}
			summaries[i] = res.Summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("batch extracted", "sentences", len(inputs))
	return summaries, nil
}

// ReadInputs reads one input per line, numbering lines from 1.
func ReadInputs(r io.Reader, lattices bool) ([]Input, error) {
	var inputs []Input
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		inputs = append(inputs, Input{
			ID:      strconv.Itoa(line),
			Line:    line,
			Text:    scanner.Text(),
			Lattice: lattices,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading inputs: %w", err)
	}
	return inputs, nil
}
