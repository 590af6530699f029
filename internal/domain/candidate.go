package domain

// Candidate represents an unprocessed image reference pulled from an external
// source for one ingestion batch. Candidates are consumed once by the decision
// pipeline and never persisted directly.
type Candidate struct {
	Source    string // Source adapter identifier (e.g. "reddit:memes")
	Title     string
	ImageURL  string
	SourceURL string // Link back to the original post
	Author    string
	Score     int // Popularity signal from the source
}
