package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pagetone/narrator/internal/config"
	"github.com/pagetone/narrator/internal/encode"
	"github.com/pagetone/narrator/internal/library"
	"github.com/pagetone/narrator/internal/observability"
	"github.com/pagetone/narrator/internal/pipeline"
	"github.com/pagetone/narrator/internal/player"
	"github.com/pagetone/narrator/internal/tts"
)

const usage = `Usage: narrator <command> [flags]

Commands:
  speak    generate narration for a script, play it, and save it
  list     list saved narrations, newest first
  play     replay a saved narration
  export   write a saved narration to an audio file
  delete   remove a saved narration

Playback keys (while audio is playing):
  p pause    r resume    + faster    - slower    s stop
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info().Msg("Interrupted, shutting down")
		cancel()
	}()

	store := library.New(cfg.LibraryPath)
	defer store.Close()

	if cfg.MetricsEnabled {
		checks := map[string]observability.CheckFunc{
			"library": func(ctx context.Context) (bool, error) {
				_, err := store.Count()
				return err == nil, err
			},
		}
		observability.ServeMetrics(ctx, cfg.MetricsAddr, checks)
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics listener enabled")
	}

	if err := dispatch(ctx, os.Args[1], os.Args[2:], cfg, store); err != nil {
		if errors.Is(err, tts.ErrQuotaExceeded) {
			fmt.Fprintln(os.Stderr, "The narration service is rate-limited right now. Please try again shortly.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, command string, args []string, cfg *config.Config, store *library.Store) error {
	switch command {
	case "speak":
		return runSpeak(ctx, args, cfg, store)
	case "list":
		return runList(store)
	case "play":
		return runPlay(ctx, args, cfg, store)
	case "export":
		return runExport(args, cfg, store)
	case "delete":
		return runDelete(args, store)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runSpeak(ctx context.Context, args []string, cfg *config.Config, store *library.Store) error {
	fs := flag.NewFlagSet("speak", flag.ExitOnError)
	textArg := fs.String("text", "", "script text to narrate")
	fileArg := fs.String("file", "", "read the script from a file instead")
	modeArg := fs.String("mode", "study", "narration mode: study or story")
	titleArg := fs.String("title", "", "title for the saved narration")
	fs.Parse(args)

	script := *textArg
	if *fileArg != "" {
		data, err := os.ReadFile(*fileArg)
		if err != nil {
			return fmt.Errorf("failed to read script file: %w", err)
		}
		script = string(data)
	}

	mode, err := tts.ParseMode(*modeArg)
	if err != nil {
		return err
	}

	logger := observability.WithGeneration(observability.NewGenerationID())

	ctrl, err := player.New(player.NewSpeakerOutput(), cfg.SampleRate, cfg.PlaybackRate)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// MP3 when the compression backend is available, WAV otherwise.
	var backend encode.Backend
	if shine, err := encode.NewShineBackend(cfg.SampleRate, cfg.MP3Bitrate); err == nil {
		backend = shine
	} else {
		logger.Warn().Err(err).Msg("MP3 backend unavailable, falling back to WAV")
	}
	enc := encode.New(backend)

	p, err := pipeline.New(pipeline.Config{
		Synthesizer: tts.NewGeminiClient(cfg),
		Encoder:     enc,
		Store:       store,
		Player:      ctrl,
		SampleRate:  cfg.SampleRate,
		Timeout:     time.Duration(cfg.SynthesisTimeout) * time.Second,
		Logger:      logger,
		OnProgress: func(e pipeline.Event) {
			switch e.Stage {
			case "segmented":
				fmt.Printf("Narrating %d sentences...\n", e.Total)
			case "synthesized":
				fmt.Printf("  [%d/%d] %s\n", e.Sentence, e.Total, e.Detail)
			}
		},
	})
	if err != nil {
		return err
	}

	item, err := p.Run(ctx, script, *titleArg, mode)
	if err != nil {
		return err
	}

	fmt.Printf("Saved %q (%s, %s) as %s\n", item.Title, item.Format, item.Duration.Round(time.Second), item.ID)

	// Play the finished narration from the top. The controller tears down
	// the still-playing first sentence on its own.
	samples, rate, err := decodeItem(item)
	if err != nil {
		return err
	}
	if err := ctrl.Play(player.Request{Samples: samples, SampleRate: rate, Title: item.Title, Voice: item.Voice}); err != nil {
		return err
	}
	return interact(ctx, ctrl)
}

func runList(store *library.Store) error {
	items, err := store.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Library is empty.")
		return nil
	}

	library.SortNewestFirst(items)
	for _, item := range items {
		fmt.Printf("%s  %-30q  %s  %s/%s  %s\n",
			item.CreatedAt.Format("2006-01-02 15:04"),
			item.Title,
			item.Duration.Round(time.Second),
			item.Mode, item.Voice,
			item.ID)
	}
	return nil
}

func runPlay(ctx context.Context, args []string, cfg *config.Config, store *library.Store) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	idArg := fs.String("id", "", "item ID to play")
	fs.Parse(args)
	if *idArg == "" {
		return fmt.Errorf("-id is required")
	}

	item, err := store.Get(*idArg)
	if err != nil {
		return err
	}

	samples, rate, err := decodeItem(item)
	if err != nil {
		return err
	}

	ctrl, err := player.New(player.NewSpeakerOutput(), cfg.SampleRate, cfg.PlaybackRate)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Play(player.Request{Samples: samples, SampleRate: rate, Title: item.Title, Voice: item.Voice}); err != nil {
		return err
	}
	return interact(ctx, ctrl)
}

func runExport(args []string, cfg *config.Config, store *library.Store) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	idArg := fs.String("id", "", "item ID to export")
	fs.Parse(args)
	if *idArg == "" {
		return fmt.Errorf("-id is required")
	}

	item, err := store.Get(*idArg)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.ExportDir, library.ExportFilename(item.Title, item.Format))
	if err := os.WriteFile(path, item.Audio, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	fmt.Printf("Exported %s\n", path)
	return nil
}

func runDelete(args []string, store *library.Store) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	idArg := fs.String("id", "", "item ID to delete")
	fs.Parse(args)
	if *idArg == "" {
		return fmt.Errorf("-id is required")
	}

	if err := store.Delete(*idArg); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *idArg)
	return nil
}

// decodeItem turns a stored payload back into playable samples.
func decodeItem(item library.Item) ([]float32, int, error) {
	switch item.Format {
	case "wav":
		return encode.ParseWAV(item.Audio)
	case "mp3":
		return encode.DecodeMP3(item.Audio)
	default:
		return nil, 0, fmt.Errorf("unknown stored format %q", item.Format)
	}
}

// interact drives playback with single-key commands until the clip ends,
// the user stops it, or the context is cancelled.
func interact(ctx context.Context, ctrl *player.Controller) error {
	done := make(chan struct{}, 1)
	ctrl.OnEnd(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- strings.TrimSpace(scanner.Text())
		}
		close(commands)
	}()

	session := ctrl.Session()
	fmt.Printf("Playing %q (%s). Keys: p pause, r resume, +/- rate, s stop.\n",
		session.Title, session.Duration.Round(time.Second))

	for {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return nil
		case <-done:
			fmt.Println("Done.")
			return nil
		case cmd, ok := <-commands:
			if !ok {
				// Stdin closed (piped invocation); wait for the clip.
				select {
				case <-done:
				case <-ctx.Done():
					ctrl.Stop()
				}
				return nil
			}
			handleCommand(ctrl, cmd)
			if ctrl.Session().State == player.StateIdle {
				return nil
			}
		}
	}
}

func handleCommand(ctrl *player.Controller, cmd string) {
	switch cmd {
	case "p":
		if err := ctrl.Pause(); err != nil {
			fmt.Println(err)
		}
	case "r":
		if err := ctrl.Resume(); err != nil {
			fmt.Println(err)
		}
	case "s", "q":
		ctrl.Stop()
	case "+":
		adjustRate(ctrl, 0.25)
	case "-":
		adjustRate(ctrl, -0.25)
	case "":
		printStatus(ctrl)
	default:
		fmt.Printf("Unknown command %q\n", cmd)
	}
}

// Rate bounds keep speech intelligible.
const (
	minRate = 0.5
	maxRate = 2.0
)

func adjustRate(ctrl *player.Controller, delta float64) {
	rate := ctrl.Session().Rate + delta
	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	if err := ctrl.SetRate(rate); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Rate %.2fx\n", rate)
}

func printStatus(ctrl *player.Controller) {
	s := ctrl.Session()
	bars := ""
	for _, bin := range ctrl.Spectrum(16) {
		bars += levelGlyph(bin)
	}
	fmt.Printf("%s %s/%s %.2fx |%s|\n",
		s.State,
		s.Elapsed.Round(time.Second),
		s.Duration.Round(time.Second),
		s.Rate,
		bars)
}

func levelGlyph(v float64) string {
	switch {
	case v > 0.05:
		return "#"
	case v > 0.01:
		return "+"
	case v > 0:
		return "."
	default:
		return " "
	}
}
