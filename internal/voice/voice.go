// Package voice produces spoken audio for assistant replies. It is strictly
// output-side: plain text in, encoded audio out.
package voice

import "context"

// Voice describes one selectable voice.
type Voice struct {
	ID     string `json:"voice_id"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// Synthesizer renders text as audio and lists the voices available to the
// user (presets plus any custom voices registered with the gateway).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, speed float64) ([]byte, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// PresetVoices are always offered, regardless of gateway state.
var PresetVoices = []Voice{
	{ID: "FunAudioLLM/CosyVoice2-0.5B:alex", Name: "alex"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:anna", Name: "anna"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:bella", Name: "bella"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:benjamin", Name: "benjamin"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:charles", Name: "charles"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:claire", Name: "claire"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:david", Name: "david"},
	{ID: "FunAudioLLM/CosyVoice2-0.5B:diana", Name: "diana"},
}

// DefaultVoiceID is used until the user picks another voice.
const DefaultVoiceID = "FunAudioLLM/CosyVoice2-0.5B:alex"
