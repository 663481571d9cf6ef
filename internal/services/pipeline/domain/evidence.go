package domain

// Evidence accumulates the search queries issued and the raw result
// snippets collected while enriching one order. Each run owns a fresh
// buffer; sharing one across runs would let a later order be "grounded"
// in an earlier order's evidence.
type Evidence struct {
	queries  []string
	snippets []string
}

// NewEvidence returns an empty evidence buffer.
func NewEvidence() *Evidence {
	return &Evidence{}
}

// AddQuery records one search query string.
func (e *Evidence) AddQuery(query string) {
	if e == nil || query == "" {
		return
	}
	e.queries = append(e.queries, query)
}

// AddSnippet records one raw search result document.
func (e *Evidence) AddSnippet(snippet string) {
	if e == nil || snippet == "" {
		return
	}
	e.snippets = append(e.snippets, snippet)
}

// Queries returns a copy of the recorded query strings.
func (e *Evidence) Queries() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.queries...)
}

// Snippets returns a copy of the recorded result documents.
func (e *Evidence) Snippets() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.snippets...)
}

// Empty reports whether no evidence was collected.
func (e *Evidence) Empty() bool {
	return e == nil || len(e.snippets) == 0
}

// Reset discards all recorded queries and snippets.
func (e *Evidence) Reset() {
	if e == nil {
		return
	}
	e.queries = e.queries[:0]
	e.snippets = e.snippets[:0]
}
