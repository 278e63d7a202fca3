package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pagetone/narrator/internal/encode"
	"github.com/pagetone/narrator/internal/library"
	"github.com/pagetone/narrator/internal/player"
	"github.com/pagetone/narrator/internal/tts"
)

// fakeSynth returns a fixed-size buffer per sentence and records call
// order. failAt (1-based) makes that call return failErr.
type fakeSynth struct {
	calls   []string
	perCall int
	failAt  int
	failErr error
	active  bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, mode tts.Mode) ([]float32, error) {
	if f.active {
		return nil, errors.New("overlapping synthesis calls")
	}
	f.active = true
	defer func() { f.active = false }()

	f.calls = append(f.calls, text)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, f.failErr
	}

	buf := make([]float32, f.perCall)
	for i := range buf {
		buf[i] = 0.25
	}
	return buf, nil
}

// fakeStarter records playback requests.
type fakeStarter struct {
	requests []player.Request
}

func (f *fakeStarter) Play(req player.Request) error {
	f.requests = append(f.requests, req)
	return nil
}

func newTestPipeline(t *testing.T, synth tts.Synthesizer, starter Starter) (*Pipeline, *library.Store) {
	t.Helper()
	store := library.New(filepath.Join(t.TempDir(), "library.db"))
	t.Cleanup(func() { store.Close() })

	p, err := New(Config{
		Synthesizer: synth,
		Encoder:     encode.WAVEncoder{},
		Store:       store,
		Player:      starter,
		SampleRate:  24000,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, store
}

func TestRun_TwoSentenceScenario(t *testing.T) {
	synth := &fakeSynth{perCall: 1200}
	starter := &fakeStarter{}
	p, store := newTestPipeline(t, synth, starter)

	item, err := p.Run(context.Background(), "Hello world. This is a test.", "Demo", tts.ModeStudy)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Each sentence is sent individually, in order.
	if len(synth.calls) != 2 {
		t.Fatalf("Expected 2 synthesis calls, got %d", len(synth.calls))
	}
	if synth.calls[0] != "Hello world." {
		t.Errorf("Expected first call 'Hello world.', got '%s'", synth.calls[0])
	}
	if synth.calls[1] != "This is a test." {
		t.Errorf("Expected second call 'This is a test.', got '%s'", synth.calls[1])
	}

	// Final buffer is the ordered concatenation: 2 x 1200 samples of
	// 16-bit PCM behind a 44-byte WAV header.
	wantBytes := 44 + 2*1200*2
	if len(item.Audio) != wantBytes {
		t.Errorf("Expected %d payload bytes, got %d", wantBytes, len(item.Audio))
	}
	if item.Duration != 100*time.Millisecond {
		t.Errorf("Expected 100ms duration, got %v", item.Duration)
	}
	if item.Mode != "study" || item.Voice != tts.ModeStudy.Voice() {
		t.Errorf("Unexpected mode/voice: %s/%s", item.Mode, item.Voice)
	}

	// The item was persisted.
	items, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Errorf("Expected saved item %s, got %+v", item.ID, items)
	}

	// Only the first sentence was handed to the player.
	if len(starter.requests) != 1 {
		t.Fatalf("Expected 1 playback start, got %d", len(starter.requests))
	}
	if len(starter.requests[0].Samples) != 1200 {
		t.Errorf("Expected first-sentence buffer of 1200 samples, got %d", len(starter.requests[0].Samples))
	}
}

func TestRun_EmptyScript(t *testing.T) {
	synth := &fakeSynth{perCall: 100}
	p, _ := newTestPipeline(t, synth, nil)

	_, err := p.Run(context.Background(), "   \n ", "t", tts.ModeStudy)
	if !errors.Is(err, ErrEmptyScript) {
		t.Errorf("Expected ErrEmptyScript, got %v", err)
	}
	if len(synth.calls) != 0 {
		t.Errorf("Expected no synthesis calls for empty script, got %d", len(synth.calls))
	}
}

func TestRun_QuotaAbortsWithoutPartialSave(t *testing.T) {
	synth := &fakeSynth{perCall: 100, failAt: 2, failErr: tts.ErrQuotaExceeded}
	p, store := newTestPipeline(t, synth, nil)

	_, err := p.Run(context.Background(), "One. Two. Three.", "t", tts.ModeStudy)
	if !errors.Is(err, tts.ErrQuotaExceeded) {
		t.Fatalf("Expected quota error, got %v", err)
	}

	// The whole attempt aborts: sentence three is never requested and
	// nothing is saved.
	if len(synth.calls) != 2 {
		t.Errorf("Expected generation to stop at sentence 2, got %d calls", len(synth.calls))
	}
	items, _ := store.List()
	if len(items) != 0 {
		t.Errorf("Expected no partial save, got %d items", len(items))
	}
}

func TestRun_GenericErrorIsNotQuota(t *testing.T) {
	synth := &fakeSynth{perCall: 100, failAt: 1, failErr: errors.New("boom")}
	p, store := newTestPipeline(t, synth, nil)

	_, err := p.Run(context.Background(), "One. Two.", "t", tts.ModeStudy)
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, tts.ErrQuotaExceeded) {
		t.Error("Generic failure must not map to the quota error")
	}

	items, _ := store.List()
	if len(items) != 0 {
		t.Errorf("Expected no save on failure, got %d items", len(items))
	}
}

func TestRun_DerivedTitle(t *testing.T) {
	synth := &fakeSynth{perCall: 100}
	p, _ := newTestPipeline(t, synth, nil)

	item, err := p.Run(context.Background(), "A short reminder for later.", "", tts.ModeStory)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if item.Title != "A short reminder for later" {
		t.Errorf("Expected derived title without terminator, got '%s'", item.Title)
	}
}

func TestRun_DerivedTitleMultibyte(t *testing.T) {
	synth := &fakeSynth{perCall: 100}
	p, _ := newTestPipeline(t, synth, nil)

	// A long multibyte first sentence must truncate on a rune boundary,
	// never persisting invalid UTF-8.
	script := strings.Repeat("こんにちは", 12) + "。"
	item, err := p.Run(context.Background(), script, "", tts.ModeStudy)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !utf8.ValidString(item.Title) {
		t.Errorf("Derived title is not valid UTF-8: %q", item.Title)
	}
	if got := utf8.RuneCountInString(item.Title); got != 40 {
		t.Errorf("Expected title truncated to 40 runes, got %d (%q)", got, item.Title)
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	synth := &fakeSynth{perCall: 100}
	var events []Event

	store := library.New(filepath.Join(t.TempDir(), "library.db"))
	defer store.Close()

	p, err := New(Config{
		Synthesizer: synth,
		Encoder:     encode.WAVEncoder{},
		Store:       store,
		SampleRate:  24000,
		OnProgress:  func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := p.Run(context.Background(), "One. Two.", "t", tts.ModeStudy); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stages := make([]string, len(events))
	for i, e := range events {
		stages[i] = e.Stage
	}
	want := []string{"segmented", "synthesized", "synthesized", "encoded", "saved"}
	if len(stages) != len(want) {
		t.Fatalf("Expected stages %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("Stage %d: expected %s, got %s", i, want[i], stages[i])
		}
	}
}

func TestNew_Validation(t *testing.T) {
	store := library.New(filepath.Join(t.TempDir(), "library.db"))
	defer store.Close()

	if _, err := New(Config{Encoder: encode.WAVEncoder{}, Store: store, SampleRate: 24000}); err == nil {
		t.Error("Expected error for missing synthesizer")
	}
	if _, err := New(Config{Synthesizer: &fakeSynth{}, Store: store, SampleRate: 24000}); err == nil {
		t.Error("Expected error for missing encoder")
	}
	if _, err := New(Config{Synthesizer: &fakeSynth{}, Encoder: encode.WAVEncoder{}, SampleRate: 24000}); err == nil {
		t.Error("Expected error for missing store")
	}
	if _, err := New(Config{Synthesizer: &fakeSynth{}, Encoder: encode.WAVEncoder{}, Store: store}); err == nil {
		t.Error("Expected error for missing sample rate")
	}
}
