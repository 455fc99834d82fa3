package model

// Claim is a short factual statement queued for fact-checking
type Claim struct {
	ID      string `json:"id,omitempty"`      // Opaque identifier assigned by the claim store
	Text    string `json:"text"`              // Raw claim text as stored
	Cleaned string `json:"cleaned,omitempty"` // Normalized text used as the search query
}

// SearchResult is a single hit returned by the search collaborator
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
