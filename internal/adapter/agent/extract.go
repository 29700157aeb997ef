package agent

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// fileCreatingTools are the tool names whose arguments carry generated file
// content. Only these trigger speculative extraction during argument
// streaming and the authoritative parse at tool-result time.
var fileCreatingTools = map[string]bool{
	"createFile":  true,
	"create_file": true,
	"writeFile":   true,
	"write_file":  true,
	"editFile":    true,
	"edit_file":   true,
}

// IsFileCreatingTool reports whether name is a tool that produces files.
func IsFileCreatingTool(name string) bool {
	return fileCreatingTools[name]
}

// PartialFile is the best-effort result of scraping a possibly incomplete
// JSON tool-argument fragment.
type PartialFile struct {
	Path    string
	Content string
}

var (
	filePathRE = regexp.MustCompile(`"filePath"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	pathRE     = regexp.MustCompile(`"path"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	// The content value may still be streaming, so the closing quote is
	// optional: everything up to the first unescaped quote, or to the end
	// of the fragment.
	contentRE = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)*)"?`)
)

// ExtractPartialFile attempts to pull a file path and (possibly truncated)
// content out of an accumulated tool-argument fragment. The fragment is not
// guaranteed to be valid JSON until the tool call completes, so this helper
// is explicitly fallible: it reports ok=false instead of ever failing.
//
// This speculative path is separate from the authoritative full-JSON parse
// performed at tool-result time; the two must stay independent.
func ExtractPartialFile(raw string) (PartialFile, bool) {
	if raw == "" {
		return PartialFile{}, false
	}

	// Fast path: the fragment already parses as JSON.
	if gjson.Valid(raw) {
		doc := gjson.Parse(raw)
		path := doc.Get("filePath").String()
		if path == "" {
			path = doc.Get("path").String()
		}
		if path == "" {
			return PartialFile{}, false
		}
		return PartialFile{Path: path, Content: doc.Get("content").String()}, true
	}

	path := firstSubmatch(filePathRE, raw)
	if path == "" {
		path = firstSubmatch(pathRE, raw)
	}
	if path == "" {
		return PartialFile{}, false
	}
	content := firstSubmatch(contentRE, raw)
	return PartialFile{
		Path:    unescapeFragment(path),
		Content: unescapeFragment(content),
	}, true
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// unescapeFragment resolves the escape sequences the producer is known to
// emit (\n \t \r \" \\). Unrecognized escapes pass through unchanged.
func unescapeFragment(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '"':
			b.WriteByte('"')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
