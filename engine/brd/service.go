// Package brd drives BRD generation for parsed cards.
package brd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/llm"
	"github.com/k2brd/k2brd/engine/textclean"
	"github.com/k2brd/k2brd/pkg/logger"
)

// ErrGenerationFailed is matched by every GenerationError.
var ErrGenerationFailed = errors.New("brd generation failed")

// GenerationError reports the card whose provider call aborted the batch.
type GenerationError struct {
	Index  int
	CardID string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s for card %s (index %d): %v", ErrGenerationFailed, e.CardID, e.Index, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// CardFetcher loads a single card from the tracker.
type CardFetcher interface {
	GetCard(ctx context.Context, cardID string) (*card.Record, error)
}

// Provider produces a document from a cleaned description and its context.
type Provider interface {
	GenerateDocument(ctx context.Context, description string, promptCtx llm.PromptContext) (string, error)
}

// Recorder observes generation outcomes.
type Recorder interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
}

// Result pairs a card with its generated document.
type Result struct {
	Card *card.Record `json:"card"`
	BRD  string       `json:"brd"`
}

// Service generates BRDs one card at a time.
type Service struct {
	tracker  CardFetcher
	provider Provider
	recorder Recorder
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder attaches a generation metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService wires the tracker and provider capabilities.
func NewService(tracker CardFetcher, provider Provider, opts ...Option) *Service {
	s := &Service{tracker: tracker, provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateForCards calls the provider once per card, in order. The first
// provider failure aborts the batch and no results are returned. An empty
// input returns an empty slice without calling the provider.
func (s *Service) GenerateForCards(ctx context.Context, cards []*card.Record) ([]Result, error) {
	log := logger.FromContext(ctx)
	results := make([]Result, 0, len(cards))
	for i, c := range cards {
		description := textclean.Normalize(c.Description)
		promptCtx := BuildContext(c)
		start := time.Now()
		doc, err := s.provider.GenerateDocument(ctx, description, promptCtx)
		if err != nil {
			s.observe("error", start)
			log.Error("BRD generation aborted", "card_id", c.ID, "index", i, "error", err)
			return nil, &GenerationError{Index: i, CardID: c.ID, Err: err}
		}
		s.observe("success", start)
		log.Debug("BRD generated", "card_id", c.ID, "context_keys", len(promptCtx))
		results = append(results, Result{Card: c, BRD: doc})
	}
	return results, nil
}

// GenerateForCardIDs fetches each card, aborting on the first fetch error,
// then generates documents for all of them.
func (s *Service) GenerateForCardIDs(ctx context.Context, cardIDs []string) ([]Result, error) {
	cards := make([]*card.Record, 0, len(cardIDs))
	for _, id := range cardIDs {
		c, err := s.tracker.GetCard(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch card %s: %w", id, err)
		}
		cards = append(cards, c)
	}
	return s.GenerateForCards(ctx, cards)
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveGeneration(outcome, time.Since(start))
	}
}
