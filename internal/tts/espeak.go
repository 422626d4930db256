package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <string.h>
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int init_espeak(void) {
	return espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
}

static int set_voice(const char *lang) {
	espeak_VOICE voice;
	memset(&voice, 0, sizeof(voice));
	voice.languages = lang;
	return espeak_SetVoiceByProperties(&voice);
}

static int say(const char *text) {
	espeak_ERROR e = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
		espeakCHARS_AUTO, NULL, NULL);
	if (e != EE_OK) {
		return (int)e;
	}
	return (int)espeak_Synchronize();
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// EspeakVoice speaks through espeak-ng's own synchronous playback.
type EspeakVoice struct {
	Language string // e.g. "en", "ru"
	Rate     int    // words per minute
}

// NewEspeakFactory returns a Factory producing espeak voices with the given
// language and speaking rate.
func NewEspeakFactory(language string, rate int) Factory {
	if language == "" {
		language = "en"
	}
	if rate <= 0 {
		rate = 150
	}
	return func() (Voice, error) {
		return &EspeakVoice{Language: language, Rate: rate}, nil
	}
}

// Say synthesizes text and blocks until playback completes. The espeak
// library is initialized and torn down per utterance; its global state does
// not tolerate being shared.
func (v *EspeakVoice) Say(text string) error {
	if rc := C.init_espeak(); rc < 0 {
		return fmt.Errorf("espeak init failed: %d", int(rc))
	}
	defer C.espeak_Terminate()

	lang := C.CString(v.Language)
	defer C.free(unsafe.Pointer(lang))
	if rc := C.set_voice(lang); rc != 0 {
		return fmt.Errorf("espeak voice %q unavailable: %d", v.Language, int(rc))
	}
	C.espeak_SetParameter(C.espeakRATE, C.int(v.Rate), 0)

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	if rc := C.say(ctext); rc != 0 {
		return fmt.Errorf("espeak synthesis failed: %d", int(rc))
	}
	return nil
}
