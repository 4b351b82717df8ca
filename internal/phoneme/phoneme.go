// Package phoneme converts text into IPA by feeding punctuation-free chunks to
// a backend engine and stitching the marks back in between them.
package phoneme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	BackendESpeak      = "espeak"
	DefaultPunctuation = ";:,.!?"
)

var (
	ErrUnknownBackend = errors.New("unknown phonemizer backend")
	ErrNoEngine       = errors.New("no phonemizer engine")
)

// Engine phonemizes text that contains no punctuation marks.
type Engine interface {
	Phonemes(text, voice string) (string, error)
}

type Options struct {
	Punctuation string // "" => DefaultPunctuation
}

type Converter struct {
	backends map[string]Engine
	marks    string
}

func NewConverter(opt Options) *Converter {
	if opt.Punctuation == "" {
		opt.Punctuation = DefaultPunctuation
	}
	return &Converter{
		backends: make(map[string]Engine),
		marks:    opt.Punctuation,
	}
}

func (c *Converter) Register(backend string, e Engine) {
	c.backends[backend] = e
}

// Convert phonemizes text with the named backend. Chunks are processed one
// after another on the calling goroutine.
func (c *Converter) Convert(ctx context.Context, text, lang, backend string) (string, error) {
	e, ok := c.backends[backend]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if e == nil {
		return "", ErrNoEngine
	}

	var b strings.Builder
	for _, p := range split(text, c.marks) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if p.mark {
			b.WriteString(p.text)
			continue
		}

		ipa, err := e.Phonemes(p.text, lang)
		if err != nil {
			return "", fmt.Errorf("%s: %w", backend, err)
		}
		ipa = clean(ipa)
		if ipa == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ipa)
	}
	return strings.TrimSpace(b.String()), nil
}

// clean drops stress marks and collapses whitespace.
func clean(ipa string) string {
	ipa = strings.Map(func(r rune) rune {
		if r == 'ˈ' || r == 'ˌ' {
			return -1
		}
		return r
	}, ipa)
	return strings.Join(strings.Fields(ipa), " ")
}

type piece struct {
	text string
	mark bool
}

// split cuts text into word chunks and runs of punctuation marks. Whitespace
// between consecutive marks is dropped so "? !" becomes one "?!" run.
func split(text, marks string) []piece {
	var (
		out   []piece
		chunk strings.Builder
		run   strings.Builder
	)
	flushChunk := func() {
		if s := strings.TrimSpace(chunk.String()); s != "" {
			out = append(out, piece{text: s})
		}
		chunk.Reset()
	}
	flushRun := func() {
		if run.Len() > 0 {
			out = append(out, piece{text: run.String(), mark: true})
		}
		run.Reset()
	}

	for _, r := range text {
		switch {
		case strings.ContainsRune(marks, r):
			flushChunk()
			run.WriteRune(r)
		case unicode.IsSpace(r) && run.Len() > 0:
			// stay in the run until a non-space, non-mark rune shows up
		default:
			flushRun()
			chunk.WriteRune(r)
		}
	}
	flushChunk()
	flushRun()
	return out
}
