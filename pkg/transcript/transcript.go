// Package transcript holds the record printed by voxscribe and the rules for
// assembling recognized segments into it.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Result is built once per run and never mutated afterwards.
type Result struct {
	Text string `json:"text"`
	IPA  string `json:"ipa"`
}

// JoinSegments trims every segment, drops the ones left empty and joins the
// rest with a single space.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Encode writes r as one JSON line.
func (r Result) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
