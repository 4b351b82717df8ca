// Package pipeline runs recognition and phonemization back to back and builds
// the transcript record.
package pipeline

import (
	"context"
	"fmt"
	log "log/slog"

	"voxscribe/pkg/transcript"
)

// SpeechRecognizer turns an audio file into text.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, path, lang string) (string, error)
}

// PhonemeConverter turns text into IPA.
type PhonemeConverter interface {
	Convert(ctx context.Context, text, lang, backend string) (string, error)
}

type Config struct {
	Language string // recognition language
	Dialect  string // phonemization voice
	Backend  string
}

type Pipeline struct {
	rec  SpeechRecognizer
	conv PhonemeConverter
	cfg  Config
}

func New(rec SpeechRecognizer, conv PhonemeConverter, cfg Config) *Pipeline {
	return &Pipeline{rec: rec, conv: conv, cfg: cfg}
}

// Run transcribes the file at path. Only recognition errors are returned;
// phonemization never fails the run.
func (p *Pipeline) Run(ctx context.Context, path string) (transcript.Result, error) {
	text, err := p.rec.Transcribe(ctx, path, p.cfg.Language)
	if err != nil {
		return transcript.Result{}, fmt.Errorf("transcribe: %w", err)
	}
	log.Debug("Transcribed", "text", text)

	res := transcript.Result{Text: text}
	if text == "" {
		return res, nil
	}
	res.IPA = p.phonemize(ctx, text)
	return res, nil
}

// phonemize swallows every failure, panics included, and yields "".
func (p *Pipeline) phonemize(ctx context.Context, text string) (ipa string) {
	if p.conv == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			log.Debug("Phonemizer panicked", "backend", p.cfg.Backend, "panic", r)
			ipa = ""
		}
	}()

	out, err := p.conv.Convert(ctx, text, p.cfg.Dialect, p.cfg.Backend)
	if err != nil {
		log.Debug("Phonemization failed", "backend", p.cfg.Backend, "err", err)
		return ""
	}
	return out
}
