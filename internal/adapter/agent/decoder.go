package agent

import (
	"encoding/json"
	"strings"

	"vibedesk/internal/domain"
)

const dataPrefix = "data: "

// DecodeFrame parses one frame into a typed StreamEvent, or nil when the
// frame does not carry a decodable event. Frames must start with "data: "
// (prefix plus one space) after trimming; the rest is parsed as JSON.
// No shape validation happens here — the processor narrows per event type.
func DecodeFrame(frame string) *domain.StreamEvent {
	frame = strings.TrimSpace(frame)
	if !strings.HasPrefix(frame, dataPrefix) {
		return nil
	}
	data := strings.TrimPrefix(frame, dataPrefix)

	var ev domain.StreamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil
	}
	return &ev
}
