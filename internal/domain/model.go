package domain

// AIModel describes a model offered by a gateway provider.
type AIModel struct {
	ID            string
	Name          string
	Description   string
	ContextLength int
	Capabilities  ModelCapabilities
}

type ModelCapabilities struct {
	StructuredOutput bool
	WebSearch        bool
}
