package agent

import "testing"

func TestExtractPartialFileCompleteJSON(t *testing.T) {
	pf, ok := ExtractPartialFile(`{"filePath":"src/app.js","content":"console.log(1)"}`)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if pf.Path != "src/app.js" || pf.Content != "console.log(1)" {
		t.Fatalf("got %+v", pf)
	}
}

func TestExtractPartialFilePathAlias(t *testing.T) {
	pf, ok := ExtractPartialFile(`{"path":"notes.md","content":"# hi"}`)
	if !ok || pf.Path != "notes.md" {
		t.Fatalf("ok=%v pf=%+v", ok, pf)
	}
}

func TestExtractPartialFileTruncatedContent(t *testing.T) {
	// The fragment breaks off mid-content, so it is not valid JSON; the
	// speculative path must still surface what is there.
	pf, ok := ExtractPartialFile(`{"filePath":"main.go","content":"package main\nfunc ma`)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if pf.Path != "main.go" {
		t.Errorf("path = %q", pf.Path)
	}
	if pf.Content != "package main\nfunc ma" {
		t.Errorf("content = %q", pf.Content)
	}
}

func TestExtractPartialFileEscapes(t *testing.T) {
	pf, ok := ExtractPartialFile(`{"filePath":"a.txt","content":"line1\nline2\t\"quoted\"\\end`)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if pf.Content != "line1\nline2\t\"quoted\"\\end" {
		t.Errorf("content = %q", pf.Content)
	}
}

func TestExtractPartialFileNoPathYet(t *testing.T) {
	cases := []string{
		"",
		`{"file`,
		`{"content":"orphan content"}`,
		`{"filePath":`,
	}
	for _, raw := range cases {
		if pf, ok := ExtractPartialFile(raw); ok {
			t.Errorf("ExtractPartialFile(%q) = %+v, want not ok", raw, pf)
		}
	}
}

func TestIsFileCreatingTool(t *testing.T) {
	for _, name := range []string{"createFile", "create_file", "writeFile", "write_file", "editFile", "edit_file"} {
		if !IsFileCreatingTool(name) {
			t.Errorf("IsFileCreatingTool(%q) = false", name)
		}
	}
	for _, name := range []string{"", "readFile", "search", "CreateFile"} {
		if IsFileCreatingTool(name) {
			t.Errorf("IsFileCreatingTool(%q) = true", name)
		}
	}
}
