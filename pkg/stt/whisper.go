package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voxscribe/pkg/audioconv"
	"voxscribe/pkg/transcript"
)

// Config is read once when the model is loaded.
type Config struct {
	ModelPath  string
	Threads    uint // 0 => 1
	MaxSamples int  // 0 = whole file
}

type Result struct {
	Text     string
	Segments []transcript.Segment
	Language string
}

type Transcriber struct {
	model whisper.Model
	cfg   Config
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	m, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}
	return &Transcriber{model: m, cfg: cfg}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe decodes the file at path and returns the joined text.
func (t *Transcriber) Transcribe(ctx context.Context, path, lang string) (string, error) {
	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{MaxSamples: t.cfg.MaxSamples})
	if err != nil {
		return "", fmt.Errorf("load audio: %w", err)
	}
	res, err := t.TranscribePCM(ctx, pcm, lang)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// pcm16k must be mono @ 16 kHz, float32 in [-1, 1]. No samples is not an
// error: the result is simply empty.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, lang string) (Result, error) {
	if t.model == nil {
		return Result{}, errors.New("nil model")
	}
	if len(pcm16k) == 0 {
		return Result{Language: lang}, nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}
	if err := configure(wctx, lang, t.cfg.Threads); err != nil {
		return Result{}, err
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	segs, err := collectSegments(ctx, wctx)
	if err != nil {
		return Result{}, err
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = wctx.Language()
	}
	return Result{
		Text:     transcript.JoinSegments(segs),
		Segments: segs,
		Language: detected,
	}, nil
}

// configure pins every context to greedy, context-free decoding with a single
// temperature, so the same audio always yields the same text.
func configure(wctx whisper.Context, lang string, threads uint) error {
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if threads == 0 {
		threads = 1
	}

	wctx.SetTranslate(false)
	wctx.SetThreads(threads)
	wctx.SetMaxContext(0)
	// whisper.cpp skips fallback entirely when the increment is not positive
	wctx.SetTemperature(0)
	wctx.SetTemperatureFallback(0)
	return nil
}

type segmentSource interface {
	NextSegment() (whisper.Segment, error)
}

func collectSegments(ctx context.Context, src segmentSource) ([]transcript.Segment, error) {
	var segs []transcript.Segment
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := src.NextSegment()
		if err == io.EOF {
			return segs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, transcript.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}
}

// SampleLimit converts a duration cap into a sample count at 16 kHz.
func SampleLimit(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * audioconv.TargetRate)
}
