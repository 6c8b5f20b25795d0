package realtime

import (
	"testing"
)

func TestHandleFinalAppends(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)

	s.handle(inboundMessage{Type: msgTranscript, Channel: channelFinal, Text: "hello there", Start: 0, End: 1.5})
	s.handle(inboundMessage{Type: msgTranscript, Channel: channelFinal, Text: "how are you", Start: 1.5, End: 3})

	got := s.Snapshot()
	if got.FinalText != "hello there how are you" {
		t.Errorf("final text = %q", got.FinalText)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].ID != 0 || got.Segments[1].ID != 1 {
		t.Error("segment ids must be sequential")
	}
	if got.Segments[1].Speaker != "speaker_0" {
		t.Errorf("speaker = %q, want synthetic speaker_0", got.Segments[1].Speaker)
	}
	if got.Segments[1].Start != 1.5 || got.Segments[1].End != 3 {
		t.Errorf("timing = [%f, %f]", got.Segments[1].Start, got.Segments[1].End)
	}
}

func TestHandlePartialReplacedAndClearedByFinal(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)

	s.handle(inboundMessage{Type: msgTranscript, Channel: channelPartial, Text: "hel"})
	s.handle(inboundMessage{Type: msgTranscript, Channel: channelPartial, Text: "hello th"})
	if got := s.Snapshot(); got.PartialText != "hello th" {
		t.Errorf("partial = %q, want wholesale replacement", got.PartialText)
	}

	s.handle(inboundMessage{Type: msgTranscript, Channel: channelFinal, Text: "hello there"})
	got := s.Snapshot()
	if got.PartialText != "" {
		t.Errorf("partial = %q, want cleared by final", got.PartialText)
	}
	if got.FinalText != "hello there" {
		t.Errorf("final = %q", got.FinalText)
	}
}

func TestHandleEmptyFinalClearsPartialOnly(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	s.handle(inboundMessage{Type: msgTranscript, Channel: channelPartial, Text: "mumble"})
	s.handle(inboundMessage{Type: msgTranscript, Channel: channelFinal, Text: ""})

	got := s.Snapshot()
	if got.PartialText != "" || got.FinalText != "" || len(got.Segments) != 0 {
		t.Errorf("empty final should only clear the partial: %+v", got)
	}
}

func TestHandleSessionEnded(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	s.handle(inboundMessage{Type: msgSessionEnded})
	if s.State() != StateEnded {
		t.Errorf("state = %q, want ended", s.State())
	}
	if s.Snapshot().IsListening {
		t.Error("ended session must not report listening")
	}
}

func TestHandleErrorFrameEntersErrorState(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	s.mu.Lock()
	s.state = StateConnected
	s.transcript.IsListening = true
	s.mu.Unlock()

	s.handle(inboundMessage{Type: msgError, Message: "quota exceeded"})
	if s.State() != StateError {
		t.Errorf("state = %q, want error", s.State())
	}
	if s.Snapshot().IsListening {
		t.Error("errored session must not report listening")
	}
}

func TestDisconnectSafeFromIdle(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	if err := s.Disconnect(); err != nil {
		t.Fatalf("idle disconnect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("repeated disconnect: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q, idle disconnect should not transition", s.State())
	}
}

func TestSendAudioRequiresConnection(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	if err := s.SendAudio([]float64{0.1, 0.2}, 48000); err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestUpdatesAreLossyNotBlocking(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	// Nothing drains the channel; more events than the buffer must not block.
	for i := 0; i < 100; i++ {
		s.handle(inboundMessage{Type: msgTranscript, Channel: channelPartial, Text: "x"})
	}
	select {
	case <-s.Updates():
	default:
		t.Error("expected at least one buffered update")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSession("ws://unused", "", 16000)
	s.handle(inboundMessage{Type: msgTranscript, Channel: channelFinal, Text: "one"})

	snap := s.Snapshot()
	snap.Segments[0].Text = "mutated"
	if s.Snapshot().Segments[0].Text != "one" {
		t.Error("snapshot must not alias internal segment storage")
	}
}
