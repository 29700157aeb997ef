package domain

import (
	"reflect"
	"testing"
)

func TestTrackFileDedupes(t *testing.T) {
	s := NewStreamState()
	if !s.TrackFile("a.txt") {
		t.Fatal("first TrackFile should report new")
	}
	if s.TrackFile("a.txt") {
		t.Fatal("second TrackFile should report known")
	}
	s.TrackFile("b.txt")
	s.TrackFile("a.txt")

	want := []string{"a.txt", "b.txt"}
	if !reflect.DeepEqual(s.CreatedFiles, want) {
		t.Fatalf("CreatedFiles = %v, want %v", s.CreatedFiles, want)
	}
}

func TestStateCopiesAreIndependent(t *testing.T) {
	s := NewStreamState()
	s.TrackFile("a.txt")
	s.Files["a.txt"] = "one"
	s.ToolArgs["t1"] = "{"

	created := s.CreatedFilesCopy()
	files := s.FilesCopy()
	args := s.ToolArgsCopy()

	created[0] = "mutated"
	files["a.txt"] = "mutated"
	args["t1"] = "mutated"

	if s.CreatedFiles[0] != "a.txt" || s.Files["a.txt"] != "one" || s.ToolArgs["t1"] != "{" {
		t.Fatal("mutating a copy leaked into the state")
	}
}
