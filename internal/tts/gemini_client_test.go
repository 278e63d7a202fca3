package tts

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagetone/narrator/internal/config"
)

func testClient(serverURL string) *GeminiClient {
	cfg := &config.Config{
		GeminiAPIKey:  "test-key",
		GeminiModel:   "test-model",
		GeminiBaseURL: serverURL,
	}
	return NewGeminiClient(cfg)
}

func pcmBase64(samples []int16) string {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestSynthesize_Success(t *testing.T) {
	pcm := []int16{0, 16384, -16384, 32767}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected api key header, got '%s'", r.Header.Get("x-goog-api-key"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"` + pcmBase64(pcm) + `"}}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	samples, err := client.Synthesize(context.Background(), "Hello world.", ModeStudy)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if len(samples) != len(pcm) {
		t.Fatalf("Expected %d samples, got %d", len(pcm), len(samples))
	}
	for i, s := range pcm {
		want := float32(s) / 32768.0
		if samples[i] != want {
			t.Errorf("Sample %d: expected %f, got %f", i, want, samples[i])
		}
	}
}

func TestSynthesize_QuotaOn429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Synthesize(context.Background(), "text", ModeStudy)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded for HTTP 429, got %v", err)
	}
}

func TestSynthesize_QuotaInErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"You exceeded your current quota","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Synthesize(context.Background(), "text", ModeStudy)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded for quota message, got %v", err)
	}
}

func TestSynthesize_GenericError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"internal failure","status":"INTERNAL"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Synthesize(context.Background(), "text", ModeStudy)
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
	if errors.Is(err, ErrQuotaExceeded) {
		t.Error("Generic server failure must not map to the quota error")
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no audio here"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Synthesize(context.Background(), "text", ModeStudy)
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("Expected ErrNoAudio, got %v", err)
	}
}

func TestSynthesize_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(server.URL)
	_, err := client.Synthesize(ctx, "text", ModeStudy)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if errors.Is(err, ErrQuotaExceeded) {
		t.Error("Context cancellation must not map to the quota error")
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("study")
	if err != nil || mode != ModeStudy {
		t.Errorf("Expected ModeStudy, got %v, %v", mode, err)
	}

	mode, err = ParseMode("story")
	if err != nil || mode != ModeStory {
		t.Errorf("Expected ModeStory, got %v, %v", mode, err)
	}

	if _, err := ParseMode("dramatic"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestMode_VoiceAndInstruction(t *testing.T) {
	if ModeStudy.Voice() == ModeStory.Voice() {
		t.Error("Modes must be bound to distinct voices")
	}

	studyInstr := ModeStudy.Instruction("abc")
	storyInstr := ModeStory.Instruction("abc")
	if studyInstr == storyInstr {
		t.Error("Modes must have distinct instructions")
	}
	for _, instr := range []string{studyInstr, storyInstr} {
		if want := "abc"; len(instr) <= len(want) || instr[len(instr)-len(want):] != want {
			t.Errorf("Instruction must embed the sentence text, got %q", instr)
		}
	}
}
