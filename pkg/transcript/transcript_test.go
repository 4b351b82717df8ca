package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name string
		segs []Segment
		want string
	}{
		{"none", nil, ""},
		{"single", []Segment{{Text: " Hello world. "}}, "Hello world."},
		{"multi", []Segment{{Text: " Hello"}, {Text: "there,  "}, {Text: "\tfriend.\n"}}, "Hello there, friend."},
		{"blank segments", []Segment{{Text: "  "}, {Text: " one"}, {Text: ""}, {Text: "two "}}, "one two"},
		{"all blank", []Segment{{Text: " "}, {Text: "\n"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinSegments(tt.segs)
			if got != tt.want {
				t.Errorf("JoinSegments() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "  ") {
				t.Errorf("JoinSegments() = %q contains a double space", got)
			}
		})
	}
}

func TestResultEncode(t *testing.T) {
	var buf bytes.Buffer
	r := Result{Text: "Hello <world> & you", IPA: "həloʊ wɜːld"}
	if err := r.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected exactly one trailing newline, got %q", out)
	}
	if !strings.HasPrefix(out, `{"text":`) {
		t.Errorf("expected text field first, got %q", out)
	}

	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 fields, got %d: %v", len(fields), fields)
	}
	for _, k := range []string{"text", "ipa"} {
		if _, ok := fields[k].(string); !ok {
			t.Errorf("field %q missing or not a string: %v", k, fields[k])
		}
	}
	if fields["text"] != r.Text || fields["ipa"] != r.IPA {
		t.Errorf("round trip mismatch: %v", fields)
	}
}

func TestResultEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := (Result{}).Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got, want := buf.String(), "{\"text\":\"\",\"ipa\":\"\"}\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}
