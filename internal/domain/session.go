package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// MaxQuestions caps the clarifying questions kept from a critique.
const MaxQuestions = 4

// CritiqueAndQuestions is the structured analysis attached to a model message.
type CritiqueAndQuestions struct {
	Critique  string   `json:"critique"`
	Questions []string `json:"questions"`
}

// ChatMessage is one turn of the refinement transcript. Structured is set
// only on model messages produced from an analysis.
type ChatMessage struct {
	Role       Role
	Content    string
	Structured *CritiqueAndQuestions
}

type Phase string

const (
	PhaseEvaluation Phase = "evaluation"
	PhaseRefinement Phase = "refinement"
)

// LogEntry is one streamed step of an improvement cycle.
type LogEntry struct {
	ID      string
	Cycle   int
	Phase   Phase
	Title   string
	Content string
}
