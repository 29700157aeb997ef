package agent

import (
	"testing"

	"vibedesk/internal/domain"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  *domain.StreamEvent
	}{
		{
			name:  "text delta",
			frame: `data: {"type":"text-delta","payload":{"text":"hello"}}`,
			want:  &domain.StreamEvent{Type: domain.StreamTextDelta, Payload: &domain.StreamPayload{Text: "hello"}},
		},
		{
			name:  "surrounding whitespace trimmed",
			frame: "\n  data: {\"type\":\"done\",\"sessionId\":\"s1\"}  \n",
			want:  &domain.StreamEvent{Type: domain.StreamDone, SessionID: "s1"},
		},
		{
			name:  "missing data prefix",
			frame: `{"type":"text-delta"}`,
			want:  nil,
		},
		{
			name:  "prefix without space",
			frame: `data:{"type":"text-delta"}`,
			want:  nil,
		},
		{
			name:  "invalid json",
			frame: `data: {"type":`,
			want:  nil,
		},
		{
			name:  "empty frame",
			frame: "",
			want:  nil,
		},
		{
			name:  "sse comment",
			frame: ": keep-alive",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeFrame(tt.frame)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("DecodeFrame(%q) = %+v, want nil", tt.frame, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("DecodeFrame(%q) = nil, want %+v", tt.frame, tt.want)
			}
			if got.Type != tt.want.Type || got.SessionID != tt.want.SessionID {
				t.Errorf("envelope = %+v, want %+v", got, tt.want)
			}
			if tt.want.Payload != nil && (got.Payload == nil || got.Payload.Text != tt.want.Payload.Text) {
				t.Errorf("payload = %+v, want %+v", got.Payload, tt.want.Payload)
			}
		})
	}
}

func TestDecodeFrameErrorShapes(t *testing.T) {
	// The two incompatible "error" shapes must decode into distinct fields.
	agentErr := DecodeFrame(`data: {"type":"error","payload":{"error":"tool exploded"}}`)
	if agentErr == nil || agentErr.PayloadError() != "tool exploded" || agentErr.Error != "" {
		t.Fatalf("agent-level error decoded as %+v", agentErr)
	}

	transportErr := DecodeFrame(`data: {"type":"error","error":"connection reset"}`)
	if transportErr == nil || transportErr.Error != "connection reset" || transportErr.PayloadError() != "" {
		t.Fatalf("transport-level error decoded as %+v", transportErr)
	}
}
