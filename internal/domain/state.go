package domain

// FileStatus tracks a streamed file through its lifecycle.
// streaming -> uploading -> complete, or -> error at any point.
type FileStatus string

const (
	FileStreaming FileStatus = "streaming"
	FileUploading FileStatus = "uploading"
	FileComplete  FileStatus = "complete"
	FileFailed    FileStatus = "error"
)

// FileChunkRecord logs one file-chunk event for a streaming file.
type FileChunkRecord struct {
	Index   int
	Content string
}

// StreamingFile is the per-fileId record created by a file-start event.
// It is keyed by fileId while the path-keyed Files map holds the latest
// known content; file-end reconciles the two addressing schemes.
type StreamingFile struct {
	Path      string
	FileName  string
	Content   string
	Chunks    []FileChunkRecord
	URL       string
	ExpiresAt string
	Status    FileStatus
	Error     string
}

// StreamState accumulates everything reconstructed from one agent stream.
// It is exclusively owned by the active stream session for its duration;
// nothing mutates it concurrently.
type StreamState struct {
	SessionID        string
	AssistantContent string
	Reasoning        string
	CurrentToolCall  string

	// Files maps logical path -> latest known (possibly partial) content.
	Files map[string]string
	// ToolArgs maps toolCallId -> raw concatenation of argument deltas.
	// Not valid JSON until the tool call completes.
	ToolArgs map[string]string
	// CreatedFiles is the insertion-ordered, de-duplicated list of paths.
	CreatedFiles []string
	// StreamingFiles maps fileId -> streaming record.
	StreamingFiles map[string]*StreamingFile
	// FileBuffers maps fileId -> raw concatenation of file-chunk payloads,
	// independent of the path-keyed Files map.
	FileBuffers map[string]string
	// FileURLs maps path -> hosted URL once a file-url event arrives.
	FileURLs map[string]string
}

// NewStreamState returns an empty accumulator ready for one stream.
func NewStreamState() *StreamState {
	return &StreamState{
		Files:          make(map[string]string),
		ToolArgs:       make(map[string]string),
		StreamingFiles: make(map[string]*StreamingFile),
		FileBuffers:    make(map[string]string),
		FileURLs:       make(map[string]string),
	}
}

// TrackFile records path in CreatedFiles if it is not already present and
// reports whether it was new.
func (s *StreamState) TrackFile(path string) bool {
	for _, p := range s.CreatedFiles {
		if p == path {
			return false
		}
	}
	s.CreatedFiles = append(s.CreatedFiles, path)
	return true
}

// CreatedFilesCopy returns a copy of the created files list, safe to hand to
// callbacks that may retain it.
func (s *StreamState) CreatedFilesCopy() []string {
	cp := make([]string, len(s.CreatedFiles))
	copy(cp, s.CreatedFiles)
	return cp
}

// ToolArgsCopy returns a snapshot copy of the tool argument buffers.
func (s *StreamState) ToolArgsCopy() map[string]string {
	cp := make(map[string]string, len(s.ToolArgs))
	for k, v := range s.ToolArgs {
		cp[k] = v
	}
	return cp
}

// FilesCopy returns a copy of the path-keyed file contents.
func (s *StreamState) FilesCopy() map[string]string {
	cp := make(map[string]string, len(s.Files))
	for k, v := range s.Files {
		cp[k] = v
	}
	return cp
}
