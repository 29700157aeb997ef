package agent

import "strings"

// FrameSplitter converts an unbounded sequence of text chunks into complete
// protocol frames, carrying any incomplete trailing frame across chunk
// boundaries. A frame boundary is a blank line ("\n\n", standard SSE) or a
// bare newline immediately followed by "data:" (the producer's compact
// one-line-per-event variant).
//
// The segment after the last boundary is always withheld as the remainder,
// even when it happens to be a complete frame; callers must Flush once the
// transport signals end of stream.
type FrameSplitter struct {
	remainder string
}

// Split appends chunk to the carried remainder and returns all complete
// frames found. It never fails; a badly split frame is simply rejected later
// by the decoder.
func (s *FrameSplitter) Split(chunk string) []string {
	buf := s.remainder + chunk
	var frames []string
	for {
		idx, skip := nextBoundary(buf)
		if idx < 0 {
			break
		}
		frames = append(frames, buf[:idx])
		buf = buf[idx+skip:]
	}
	s.remainder = buf
	return frames
}

// Flush returns the withheld remainder, if any, and resets the splitter.
func (s *FrameSplitter) Flush() string {
	rem := s.remainder
	s.remainder = ""
	return rem
}

// nextBoundary returns the index of the earliest frame boundary in buf and
// how many bytes the separator consumes, or (-1, 0) when no boundary exists.
// The compact "\ndata:" boundary consumes only the newline so the "data:"
// prefix stays with the next frame.
func nextBoundary(buf string) (int, int) {
	blank := strings.Index(buf, "\n\n")
	compact := strings.Index(buf, "\ndata:")
	switch {
	case blank >= 0 && (compact < 0 || blank <= compact):
		return blank, 2
	case compact >= 0:
		return compact, 1
	default:
		return -1, 0
	}
}
