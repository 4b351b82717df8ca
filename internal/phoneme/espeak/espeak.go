// Package espeak phonemizes text with libespeak-ng.
package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

#ifndef espeakINITIALIZE_DONT_EXIT
#define espeakINITIALIZE_DONT_EXIT 0x8000
#endif

// bit 1 of phonememode selects UTF-8 IPA output
#define VS_PHONEMES_IPA 0x02

static int
vs_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_SYNCHRONOUS, 0, NULL, espeakINITIALIZE_DONT_EXIT);
}

static int
vs_set_voice(const char *name)
{
	return espeak_SetVoiceByName(name);
}

// Converts one clause and advances *text past it, or sets it to NULL at the end.
static const char *
vs_next_clause(const char **text)
{
	return espeak_TextToPhonemes((const void **)text, espeakCHARS_UTF8, VS_PHONEMES_IPA);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

var errNotInitialized = errors.New("espeak-ng not initialized")

// Engine is safe for concurrent use, but libespeak-ng keeps global state so
// every call is serialized.
type Engine struct {
	once    sync.Once
	initErr error

	mu    sync.Mutex
	voice string
}

func New() *Engine { return &Engine{} }

func (e *Engine) init() {
	if rc := C.vs_init(); rc < 0 {
		e.initErr = fmt.Errorf("espeak_Initialize failed: %d", int(rc))
	}
}

// Phonemes returns the IPA for text read with the given voice, e.g. "en-us".
func (e *Engine) Phonemes(text, voice string) (string, error) {
	e.once.Do(e.init)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initErr != nil {
		return "", e.initErr
	}
	if text == "" {
		return "", nil
	}

	if voice != e.voice {
		cvoice := C.CString(voice)
		defer C.free(unsafe.Pointer(cvoice))
		if rc := C.vs_set_voice(cvoice); rc != 0 {
			return "", fmt.Errorf("espeak_SetVoiceByName(%s) failed: %d", voice, int(rc))
		}
		e.voice = voice
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	var (
		parts []string
		cur   = ctext
	)
	for cur != nil {
		out := C.vs_next_clause(&cur)
		if out == nil {
			break
		}
		if s := strings.TrimSpace(C.GoString(out)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases libespeak-ng. The engine cannot be used afterwards.
func (e *Engine) Close() error {
	// an engine that never ran must not initialize later either
	e.once.Do(func() { e.initErr = errNotInitialized })

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initErr != nil {
		return nil
	}
	e.initErr = errNotInitialized
	C.espeak_Terminate()
	return nil
}
