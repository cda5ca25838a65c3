package voice

import "context"

// MockSynthesizer returns canned audio for tests and offline runs.
type MockSynthesizer struct {
	Audio []byte
	Err   error
}

func (m *MockSynthesizer) Synthesize(_ context.Context, _, _ string, _ float64) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Audio != nil {
		return m.Audio, nil
	}
	return []byte("mock-audio"), nil
}

func (m *MockSynthesizer) ListVoices(_ context.Context) ([]Voice, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Voice, len(PresetVoices))
	copy(out, PresetVoices)
	return out, nil
}
