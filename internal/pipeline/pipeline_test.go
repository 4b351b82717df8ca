package pipeline

import (
	"context"
	"errors"
	"testing"
)

type fakeRecognizer struct {
	text  string
	err   error
	langs []string
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _, lang string) (string, error) {
	f.langs = append(f.langs, lang)
	return f.text, f.err
}

type fakeConverter struct {
	ipa   string
	err   error
	panic any
	calls int
	args  [][3]string
}

func (f *fakeConverter) Convert(_ context.Context, text, lang, backend string) (string, error) {
	f.calls++
	f.args = append(f.args, [3]string{text, lang, backend})
	if f.panic != nil {
		panic(f.panic)
	}
	return f.ipa, f.err
}

var testConfig = Config{Language: "en", Dialect: "en-us", Backend: "espeak"}

func TestRun_EmptyTextSkipsPhonemizer(t *testing.T) {
	rec := &fakeRecognizer{}
	conv := &fakeConverter{ipa: "should not appear"}

	res, err := New(rec, conv, testConfig).Run(context.Background(), "silence.wav")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Text != "" || res.IPA != "" {
		t.Errorf("expected empty result, got %+v", res)
	}
	if conv.calls != 0 {
		t.Errorf("phonemizer should not be called for empty text, got %d calls", conv.calls)
	}
}

func TestRun_Success(t *testing.T) {
	rec := &fakeRecognizer{text: "Hello world."}
	conv := &fakeConverter{ipa: "həloʊ wɜːld."}

	res, err := New(rec, conv, testConfig).Run(context.Background(), "hello.wav")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Text != "Hello world." || res.IPA != "həloʊ wɜːld." {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(rec.langs) != 1 || rec.langs[0] != "en" {
		t.Errorf("recognizer language: %v", rec.langs)
	}
	if conv.args[0] != [3]string{"Hello world.", "en-us", "espeak"} {
		t.Errorf("converter args: %v", conv.args[0])
	}
}

func TestRun_PhonemizerFailureIsSwallowed(t *testing.T) {
	tests := []struct {
		name string
		conv PhonemeConverter
	}{
		{"error", &fakeConverter{ipa: "partial", err: errors.New("espeak not installed")}},
		{"panic", &fakeConverter{panic: "cgo exploded"}},
		{"panic with error", &fakeConverter{panic: errors.New("boom")}},
		{"nil converter", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{text: "Hello"}
			res, err := New(rec, tt.conv, testConfig).Run(context.Background(), "hello.wav")
			if err != nil {
				t.Fatalf("Run should not fail on phonemizer errors: %v", err)
			}
			if res.Text != "Hello" {
				t.Errorf("expected text to survive, got %q", res.Text)
			}
			if res.IPA != "" {
				t.Errorf("expected empty IPA, got %q", res.IPA)
			}
		})
	}
}

func TestRun_RecognizerErrorIsFatal(t *testing.T) {
	boom := errors.New("decode audio: invalid wav")
	conv := &fakeConverter{ipa: "x"}

	_, err := New(&fakeRecognizer{err: boom}, conv, testConfig).Run(context.Background(), "bad.wav")
	if !errors.Is(err, boom) {
		t.Fatalf("expected recognizer error, got %v", err)
	}
	if conv.calls != 0 {
		t.Errorf("phonemizer should not run after a recognition failure")
	}
}

func TestRun_Deterministic(t *testing.T) {
	p := New(&fakeRecognizer{text: "same"}, &fakeConverter{ipa: "seɪm"}, testConfig)

	a, err := p.Run(context.Background(), "a.wav")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Run(context.Background(), "a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
}
