// Package pipeline wires the narration flow end to end: segment the script,
// synthesize each sentence in order, hand the first sentence to the player
// for immediate feedback, then concatenate, encode, and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagetone/narrator/internal/audio"
	"github.com/pagetone/narrator/internal/encode"
	"github.com/pagetone/narrator/internal/library"
	"github.com/pagetone/narrator/internal/observability"
	"github.com/pagetone/narrator/internal/player"
	"github.com/pagetone/narrator/internal/text"
	"github.com/pagetone/narrator/internal/tts"
)

// ErrEmptyScript is the input error for a blank script. It is raised before
// any remote call is made.
var ErrEmptyScript = errors.New("script is empty")

// Starter receives the first synthesized sentence so playback can begin
// while later sentences are still generating.
type Starter interface {
	Play(req player.Request) error
}

// Event reports pipeline progress.
type Event struct {
	Stage    string // "segmented", "synthesized", "encoded", "saved"
	Sentence int    // 1-based, for "synthesized"
	Total    int
	Detail   string
}

// Config assembles a Pipeline. Player and OnProgress are optional.
type Config struct {
	Synthesizer tts.Synthesizer
	Encoder     encode.Encoder
	Store       *library.Store
	Player      Starter
	SampleRate  int
	Timeout     time.Duration
	OnProgress  func(Event)
	Logger      zerolog.Logger
}

// Pipeline runs one script through segmentation, synthesis, encoding and
// storage. Synthesis is strictly sequential: sentence i+1 is not requested
// until sentence i has resolved.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline from the given configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Pipeline{cfg: cfg}, nil
}

// Run generates narration for the whole script. Any failure aborts the
// attempt with nothing saved; a quota failure is returned as
// tts.ErrQuotaExceeded so the caller can message it distinctly.
func (p *Pipeline) Run(ctx context.Context, script, title string, mode tts.Mode) (library.Item, error) {
	start := time.Now()
	logger := p.cfg.Logger

	if strings.TrimSpace(script) == "" {
		return library.Item{}, ErrEmptyScript
	}

	units := text.Segment(script)
	if len(units) == 0 {
		return library.Item{}, ErrEmptyScript
	}
	p.emit(Event{Stage: "segmented", Total: len(units)})
	logger.Debug().Int("sentences", len(units)).Msg("script segmented")

	buffers := make([][]float32, 0, len(units))
	for i, unit := range units {
		sctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		t0 := time.Now()
		samples, err := p.cfg.Synthesizer.Synthesize(sctx, unit, mode)
		cancel()
		if err != nil {
			if errors.Is(err, tts.ErrQuotaExceeded) {
				observability.RecordSynthesis("quota", t0)
				observability.RecordGeneration("quota", start)
				return library.Item{}, tts.ErrQuotaExceeded
			}
			observability.RecordSynthesis("error", t0)
			observability.RecordGeneration("error", start)
			return library.Item{}, fmt.Errorf("failed to synthesize sentence %d: %w", i+1, err)
		}
		observability.RecordSynthesis("ok", t0)
		observability.RecordSamples(len(samples))

		buffers = append(buffers, samples)
		p.emit(Event{Stage: "synthesized", Sentence: i + 1, Total: len(units), Detail: unit})
		logger.Debug().Int("sentence", i+1).Int("samples", len(samples)).Msg("sentence synthesized")

		// First sentence starts playing while the rest generate.
		if i == 0 && p.cfg.Player != nil {
			err := p.cfg.Player.Play(player.Request{
				Samples:    samples,
				SampleRate: p.cfg.SampleRate,
				Title:      title,
				Voice:      mode.Voice(),
			})
			if err != nil {
				logger.Warn().Err(err).Msg("progressive playback failed to start")
			}
		}
	}

	final := audio.Concat(buffers)

	encStart := time.Now()
	payload, err := p.cfg.Encoder.Encode(final, p.cfg.SampleRate)
	if err != nil {
		observability.RecordGeneration("error", start)
		return library.Item{}, fmt.Errorf("failed to encode audio: %w", err)
	}
	observability.RecordEncode(p.cfg.Encoder.Extension(), encStart)
	p.emit(Event{Stage: "encoded", Detail: p.cfg.Encoder.Extension()})

	if title == "" {
		title = deriveTitle(units[0])
	}

	item := library.Item{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now(),
		Duration:  audio.Duration(len(final), p.cfg.SampleRate),
		Mode:      mode.String(),
		Voice:     mode.Voice(),
		Format:    p.cfg.Encoder.Extension(),
		Audio:     payload,
	}

	if err := p.cfg.Store.Save(item); err != nil {
		observability.RecordGeneration("error", start)
		return library.Item{}, fmt.Errorf("failed to save item: %w", err)
	}
	if n, err := p.cfg.Store.Count(); err == nil {
		observability.SetLibrarySize(n)
	}

	observability.RecordGeneration("ok", start)
	p.emit(Event{Stage: "saved", Detail: item.ID})
	logger.Info().
		Str("item_id", item.ID).
		Str("title", item.Title).
		Dur("duration", item.Duration).
		Str("format", item.Format).
		Msg("narration saved")

	return item, nil
}

func (p *Pipeline) emit(e Event) {
	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(e)
	}
}

// deriveTitle falls back to the first words of the script when the user
// gave no title.
const maxDerivedTitle = 40

func deriveTitle(first string) string {
	title := strings.TrimRight(first, ".!?。")
	if runes := []rune(title); len(runes) > maxDerivedTitle {
		title = strings.TrimSpace(string(runes[:maxDerivedTitle]))
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}
