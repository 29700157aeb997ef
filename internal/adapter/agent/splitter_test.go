package agent

import (
	"reflect"
	"testing"
)

func collect(s *FrameSplitter, chunks []string) []string {
	var frames []string
	for _, c := range chunks {
		frames = append(frames, s.Split(c)...)
	}
	if tail := s.Flush(); tail != "" {
		frames = append(frames, tail)
	}
	return frames
}

func TestSplitterBlankLineBoundary(t *testing.T) {
	s := &FrameSplitter{}
	frames := collect(s, []string{"data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"})

	want := []string{"data: {\"a\":1}", "data: {\"b\":2}"}
	if !reflect.DeepEqual(frames, want) {
		t.Fatalf("frames = %q, want %q", frames, want)
	}
}

func TestSplitterCompactBoundaryKeepsDataPrefix(t *testing.T) {
	// The compact variant separates events with a single newline; the
	// "data:" prefix must stay attached to the following frame.
	s := &FrameSplitter{}
	frames := collect(s, []string{"data: {\"a\":1}\ndata: {\"b\":2}\ndata: {\"c\":3}"})

	want := []string{"data: {\"a\":1}", "data: {\"b\":2}", "data: {\"c\":3}"}
	if !reflect.DeepEqual(frames, want) {
		t.Fatalf("frames = %q, want %q", frames, want)
	}
}

func TestSplitterWithholdsLastSegment(t *testing.T) {
	s := &FrameSplitter{}
	frames := s.Split("data: {\"a\":1}\n\ndata: {\"b\":2}")
	if len(frames) != 1 || frames[0] != "data: {\"a\":1}" {
		t.Fatalf("frames = %q, want just the first frame", frames)
	}

	// Even a frame that looks complete stays buffered until Flush.
	if got := s.Flush(); got != "data: {\"b\":2}" {
		t.Fatalf("Flush() = %q", got)
	}
	if got := s.Flush(); got != "" {
		t.Fatalf("second Flush() = %q, want empty", got)
	}
}

func TestSplitterCarriesPartialFrameAcrossChunks(t *testing.T) {
	s := &FrameSplitter{}
	var frames []string
	frames = append(frames, s.Split("data: {\"ty")...)
	frames = append(frames, s.Split("pe\":\"done\"}\n\ndata: ")...)
	frames = append(frames, s.Split("{\"x\":1}\n\n")...)
	frames = append(frames, s.Split("tail")...)
	frames = append(frames, s.Flush())

	want := []string{"data: {\"type\":\"done\"}", "data: {\"x\":1}", "tail"}
	if !reflect.DeepEqual(frames, want) {
		t.Fatalf("frames = %q, want %q", frames, want)
	}
}

func TestSplitterEarliestBoundaryWins(t *testing.T) {
	// A blank line before a compact boundary must be consumed first.
	s := &FrameSplitter{}
	frames := collect(s, []string{"data: {\"a\":1}\n\nnoise\ndata: {\"b\":2}"})

	want := []string{"data: {\"a\":1}", "noise", "data: {\"b\":2}"}
	if !reflect.DeepEqual(frames, want) {
		t.Fatalf("frames = %q, want %q", frames, want)
	}
}

func TestSplitterChunkingInvariance(t *testing.T) {
	// The frame sequence must not depend on where the transport happens to
	// cut the byte stream.
	stream := "data: {\"type\":\"session-start\",\"sessionId\":\"s1\"}\n" +
		"data: {\"type\":\"text-delta\",\"payload\":{\"text\":\"hi\"}}\n\n" +
		"data: {\"type\":\"tool-call\",\"payload\":{\"toolName\":\"createFile\"}}\n" +
		"data: {\"type\":\"done\",\"sessionId\":\"s1\"}\n\n"

	reference := collect(&FrameSplitter{}, []string{stream})

	for _, size := range []int{1, 2, 3, 5, 7, 16, 64} {
		var chunks []string
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			chunks = append(chunks, stream[i:end])
		}
		got := collect(&FrameSplitter{}, chunks)
		if !reflect.DeepEqual(got, reference) {
			t.Fatalf("chunk size %d: frames = %q, want %q", size, got, reference)
		}
	}
}
