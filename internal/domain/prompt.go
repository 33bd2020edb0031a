package domain

// PromptKind tells how a prompt version came to be.
type PromptKind string

const (
	PromptOriginal PromptKind = "Original"
	PromptEnhanced PromptKind = "Enhanced"
	PromptRefined  PromptKind = "Refined"
	PromptTenX     PromptKind = "10x"
)

// PromptVersion is one immutable snapshot of the prompt being engineered.
type PromptVersion struct {
	ID      int        `json:"id"`
	Content string     `json:"content"`
	Kind    PromptKind `json:"type"`
}

// NextPromptID returns max(ids)+1, or 1 for an empty history.
func NextPromptID(history []PromptVersion) int {
	next := 1
	for _, p := range history {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}

// FindPrompt looks a version up by id.
func FindPrompt(history []PromptVersion, id int) (PromptVersion, bool) {
	if id == 0 {
		return PromptVersion{}, false
	}
	for _, p := range history {
		if p.ID == id {
			return p, true
		}
	}
	return PromptVersion{}, false
}
