package session

import "github.com/set-night/promptforge/internal/domain"

// Action is a named state transition.
type Action interface {
	action()
}

type (
	submitStarted   struct{ idea string }
	submitSucceeded struct {
		prompt  string
		message domain.ChatMessage
	}
	submitFailed struct{ err string }

	chatStarted   struct{ text string }
	chunkReceived struct{ text string }
	// chatStreamed ends a chat stream; a non-empty revision becomes the
	// active version and an analysis of it starts.
	chatStreamed struct{ revision string }
	chatFailed   struct{ err string }

	transcriptReplaced struct{ message domain.ChatMessage }
	transcriptCleared  struct{}
	analysisFailed     struct {
		err       string
		clearChat bool
	}

	improvementStarted struct{}
	cycleStarted       struct{}
	logEntryOpened     struct{ entry domain.LogEntry }
	logChunkReceived   struct{ id, text string }
	cycleCompleted     struct{ prompt string }
	cycleFailed        struct{ err string }
	improvementFinished struct{}

	historySelected struct{ id int }
	resetRequested  struct{}
)

func (submitStarted) action()       {}
func (submitSucceeded) action()     {}
func (submitFailed) action()        {}
func (chatStarted) action()         {}
func (chunkReceived) action()       {}
func (chatStreamed) action()        {}
func (chatFailed) action()          {}
func (transcriptReplaced) action()  {}
func (transcriptCleared) action()   {}
func (analysisFailed) action()      {}
func (improvementStarted) action()  {}
func (cycleStarted) action()        {}
func (logEntryOpened) action()      {}
func (logChunkReceived) action()    {}
func (cycleCompleted) action()      {}
func (cycleFailed) action()         {}
func (improvementFinished) action() {}
func (historySelected) action()     {}
func (resetRequested) action()      {}

// Reduce returns the state after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case submitStarted:
		s.History = []domain.PromptVersion{{ID: 1, Content: a.idea, Kind: domain.PromptOriginal}}
		s.ActiveID = 0
		s.Chat = nil
		s.Log = nil
		s.Busy = true
		s.LastError = ""

	case submitSucceeded:
		s.History, s.ActiveID = prepend(s.History, a.prompt, domain.PromptEnhanced)
		s.Chat = []domain.ChatMessage{a.message}
		s.Mode = ModeRefining
		s.Busy = false

	case submitFailed:
		s.History = nil
		s.ActiveID = 0
		s.Chat = nil
		s.Mode = ModeInitial
		s.Busy = false
		s.LastError = a.err

	case chatStarted:
		s.Chat = appendChat(s.Chat,
			domain.ChatMessage{Role: domain.RoleUser, Content: a.text},
			domain.ChatMessage{Role: domain.RoleModel},
		)
		s.Streaming = true
		s.LastError = ""

	case chunkReceived:
		n := len(s.Chat)
		if n == 0 || s.Chat[n-1].Role != domain.RoleModel {
			return s
		}
		chat := appendChat(s.Chat[:n-1:n-1], s.Chat[n-1])
		chat[n-1].Content += a.text
		s.Chat = chat

	case chatStreamed:
		s.Streaming = false
		if a.revision != "" {
			s.History, s.ActiveID = prepend(s.History, a.revision, domain.PromptRefined)
			s.Busy = true
		}

	case chatFailed:
		if n := len(s.Chat); n > 0 && s.Chat[n-1].Role == domain.RoleModel {
			s.Chat = appendChat(s.Chat[: n-1 : n-1])
		}
		s.Streaming = false
		s.Busy = false
		s.LastError = a.err

	case transcriptReplaced:
		s.Chat = []domain.ChatMessage{a.message}
		s.Busy = false

	case transcriptCleared:
		s.Chat = nil
		s.Busy = false

	case analysisFailed:
		if a.clearChat {
			s.Chat = nil
		}
		s.Busy = false
		s.LastError = a.err

	case improvementStarted:
		s.Mode = ModeImproving
		s.Log = nil
		s.Busy = true
		s.LastError = ""

	case cycleStarted:
		s.Busy = true
		s.LastError = ""

	case logEntryOpened:
		log := make([]domain.LogEntry, len(s.Log), len(s.Log)+1)
		copy(log, s.Log)
		s.Log = append(log, a.entry)
		s.Streaming = true

	case logChunkReceived:
		for i := range s.Log {
			if s.Log[i].ID != a.id {
				continue
			}
			log := make([]domain.LogEntry, len(s.Log))
			copy(log, s.Log)
			log[i].Content += a.text
			s.Log = log
			break
		}

	case cycleCompleted:
		s.History, s.ActiveID = prepend(s.History, a.prompt, domain.PromptTenX)
		s.Busy = false
		s.Streaming = false

	case cycleFailed:
		s.Busy = false
		s.Streaming = false
		s.LastError = a.err

	case improvementFinished:
		s.Mode = ModeRefining
		s.Busy = true
		s.LastError = ""

	case historySelected:
		s.ActiveID = a.id
		if s.Mode == ModeImproving {
			s.Mode = ModeRefining
		}
		s.Chat = nil
		s.Busy = true
		s.LastError = ""

	case resetRequested:
		return State{}
	}
	return s
}

// prepend adds a new version with the next id in front of history.
func prepend(history []domain.PromptVersion, content string, kind domain.PromptKind) ([]domain.PromptVersion, int) {
	id := domain.NextPromptID(history)
	out := make([]domain.PromptVersion, 0, len(history)+1)
	out = append(out, domain.PromptVersion{ID: id, Content: content, Kind: kind})
	return append(out, history...), id
}

func appendChat(chat []domain.ChatMessage, msgs ...domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(chat)+len(msgs))
	out = append(out, chat...)
	return append(out, msgs...)
}
