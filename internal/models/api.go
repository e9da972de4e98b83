package models

// SearchRequest is a similarity query against the corpus.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

// SearchMatch is a single ranked chunk returned by search.
type SearchMatch struct {
	Path      string  `json:"path"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
	LineCount int     `json:"lineCount"`
	FileSize  int64   `json:"fileSize"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// ReadRequest asks for a file's text, optionally restricted to a 1-based
// inclusive line range. Zero StartLine/EndLine mean "unset".
type ReadRequest struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
}

// ReadResponse carries the requested file text.
type ReadResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListRequest asks for directory entries under the indexed root.
type ListRequest struct {
	Dir               string   `json:"dir,omitempty"`
	Recursive         bool     `json:"recursive,omitempty"`
	MaxDepth          int      `json:"maxDepth,omitempty"`
	IncludeExtensions []string `json:"includeExtensions,omitempty"`
	Limit             int      `json:"limit,omitempty"`
}

// Entry is a single directory listing entry. Size is set for files only.
type Entry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// ListResponse is the response for a list request.
type ListResponse struct {
	Entries []Entry `json:"entries"`
}

// Entry types.
const (
	EntryTypeFile = "file"
	EntryTypeDir  = "dir"
)
