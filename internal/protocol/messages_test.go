package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_message","text":"hello"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	cm, ok := msg.(ClientMessage)
	if !ok {
		t.Fatalf("ParseClientMessage() type = %T, want ClientMessage", msg)
	}
	if cm.Text != "hello" {
		t.Fatalf("Text = %q, want %q", cm.Text, "hello")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"assistant_reply"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`not json`)); err == nil {
		t.Fatalf("ParseClientMessage() accepted garbage")
	}
}
