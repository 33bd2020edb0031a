package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/extract"
	"github.com/set-night/promptforge/internal/llm"
	"github.com/set-night/promptforge/internal/service"
)

// Assistant runs the model-backed steps a session needs.
type Assistant interface {
	Enhance(ctx context.Context, idea string) (service.Enhancement, error)
	Critique(ctx context.Context, prompt string) (domain.CritiqueAndQuestions, error)
	Chat(ctx context.Context, prompt string, prior []domain.ChatMessage, text string) iter.Seq2[string, error]
	Evaluate(ctx context.Context, prompt string) iter.Seq2[string, error]
	Refine(ctx context.Context, prompt, evaluation string) iter.Seq2[string, error]
}

// Hooks receive operational events. Any field may be nil.
type Hooks struct {
	OnFailure func(scope, op string, err error)
	OnReset   func(scope string)
}

// Machine serializes the intents of one session. At most one model
// operation runs at a time; a second intent fails with domain.ErrBusy.
type Machine struct {
	scope     string
	assistant Assistant
	store     Store
	hooks     Hooks

	mu        sync.Mutex
	state     State
	saved     persisted
	epoch     uint64
	observers map[int]func(State)
	nextObs   int
}

// NewMachine restores the session for scope from store. A nil store keeps
// the session in memory only.
func NewMachine(ctx context.Context, scope string, assistant Assistant, store Store, hooks Hooks) *Machine {
	p := load(ctx, store, scope)

	s := State{}
	if len(p.history) > 0 && p.activeID != 0 {
		s.Mode = ModeRefining
		s.History = p.history
		s.ActiveID = p.activeID
	}

	return &Machine{
		scope:     scope,
		assistant: assistant,
		store:     store,
		hooks:     hooks,
		state:     s,
		saved:     snapshotOf(s),
		observers: make(map[int]func(State)),
	}
}

func (m *Machine) Scope() string {
	return m.scope
}

// Snapshot returns the current state without side effects.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the state to render. A refining or improving session left
// without a resolvable active prompt is reset first.
func (m *Machine) Current(ctx context.Context) State {
	s := m.Snapshot()
	if s.Idle() && !s.consistent() {
		slog.Warn("session has no active prompt, resetting", "scope", m.scope, "mode", s.Mode.String())
		m.Reset(ctx)
		return m.Snapshot()
	}
	return s
}

// Subscribe registers fn for every state change. fn runs outside the lock on
// the goroutine that caused the change. The returned func unsubscribes.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Submit turns a raw idea into the first prompt pair and opens refinement.
func (m *Machine) Submit(ctx context.Context, idea string) error {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return domain.ErrEmptyPrompt
	}

	epoch, err := m.begin(ctx, submitStarted{idea: idea}, func(s State) error {
		if s.Mode != ModeInitial {
			return domain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return err
	}

	enh, err := m.assistant.Enhance(ctx, idea)
	if err != nil {
		return m.fail(ctx, epoch, "enhance", err, submitFailed{err: llm.UserMessage(err)})
	}
	return m.commit(ctx, epoch, submitSucceeded{prompt: enh.Prompt, message: enh.Message})
}

// SendChatMessage streams a reply about the active prompt. A fenced block in
// the reply becomes a new refined version, which is then analyzed.
func (m *Machine) SendChatMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyPrompt
	}

	var (
		prompt string
		prior  []domain.ChatMessage
	)
	epoch, err := m.begin(ctx, chatStarted{text: text}, func(s State) error {
		if s.Mode != ModeRefining {
			return domain.ErrInvalidTransition
		}
		active, ok := s.ActivePrompt()
		if !ok {
			return domain.ErrNoActivePrompt
		}
		prompt, prior = active.Content, s.Chat
		return nil
	})
	if err != nil {
		return err
	}

	reply, err := m.drain(ctx, epoch, m.assistant.Chat(ctx, prompt, prior, text), func(chunk string) Action {
		return chunkReceived{text: chunk}
	})
	if err != nil {
		return m.fail(ctx, epoch, "chat", err, chatFailed{err: llm.UserMessage(err)})
	}

	revision, _ := extract.AnyFence(reply)
	if err := m.commit(ctx, epoch, chatStreamed{revision: revision}); err != nil {
		return err
	}
	if revision == "" {
		return nil
	}
	return m.analyze(ctx, epoch, revision, false)
}

// StartImprovement enters the improvement loop and runs its first cycle.
func (m *Machine) StartImprovement(ctx context.Context) error {
	var latest domain.PromptVersion
	epoch, err := m.begin(ctx, improvementStarted{}, func(s State) error {
		if s.Mode != ModeRefining {
			return domain.ErrInvalidTransition
		}
		var ok bool
		if latest, ok = s.Latest(); !ok {
			return domain.ErrNoActivePrompt
		}
		return nil
	})
	if err != nil {
		return err
	}
	return m.runCycle(ctx, epoch, latest, 1)
}

// RunImprovementCycle evaluates and refines the newest version once more.
func (m *Machine) RunImprovementCycle(ctx context.Context) error {
	var (
		latest domain.PromptVersion
		cycle  int
	)
	epoch, err := m.begin(ctx, cycleStarted{}, func(s State) error {
		if s.Mode != ModeImproving {
			return domain.ErrInvalidTransition
		}
		var ok bool
		if latest, ok = s.Latest(); !ok {
			return domain.ErrNoActivePrompt
		}
		cycle = s.nextCycle()
		return nil
	})
	if err != nil {
		return err
	}
	return m.runCycle(ctx, epoch, latest, cycle)
}

func (m *Machine) runCycle(ctx context.Context, epoch uint64, latest domain.PromptVersion, cycle int) error {
	evaluation, err := m.stage(ctx, epoch, cycle, domain.PhaseEvaluation,
		fmt.Sprintf("Cycle %d: Evaluating Prompt...", cycle),
		m.assistant.Evaluate(ctx, latest.Content))
	if err != nil {
		return m.fail(ctx, epoch, "evaluate", err, cycleFailed{err: llm.UserMessage(err)})
	}

	refinement, err := m.stage(ctx, epoch, cycle, domain.PhaseRefinement,
		fmt.Sprintf("Cycle %d: Refining Prompt...", cycle),
		m.assistant.Refine(ctx, latest.Content, evaluation))
	if err != nil {
		return m.fail(ctx, epoch, "refine", err, cycleFailed{err: llm.UserMessage(err)})
	}

	improved, ok := extract.AnyFence(refinement)
	if !ok {
		slog.Warn("refinement has no fenced prompt, using whole reply", "scope", m.scope, "cycle", cycle)
		improved = strings.TrimSpace(refinement)
	}
	if improved == "" {
		return m.commit(ctx, epoch, cycleFailed{err: "The model returned an empty refinement. Run the cycle again."})
	}
	return m.commit(ctx, epoch, cycleCompleted{prompt: improved})
}

// stage opens a log entry and streams seq into it.
func (m *Machine) stage(ctx context.Context, epoch uint64, cycle int, phase domain.Phase, title string, seq iter.Seq2[string, error]) (string, error) {
	id := string(phase) + "-" + uuid.NewString()
	entry := domain.LogEntry{ID: id, Cycle: cycle, Phase: phase, Title: title}
	if err := m.commit(ctx, epoch, logEntryOpened{entry: entry}); err != nil {
		return "", err
	}
	return m.drain(ctx, epoch, seq, func(chunk string) Action {
		return logChunkReceived{id: id, text: chunk}
	})
}

// FinishImprovement leaves the loop and analyzes the active version.
func (m *Machine) FinishImprovement(ctx context.Context) error {
	var (
		active domain.PromptVersion
		ok     bool
	)
	epoch, err := m.begin(ctx, improvementFinished{}, func(s State) error {
		if s.Mode != ModeImproving {
			return domain.ErrInvalidTransition
		}
		active, ok = s.ActivePrompt()
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return m.commit(ctx, epoch, transcriptCleared{})
	}
	return m.analyze(ctx, epoch, active.Content, true)
}

// SelectHistory makes an earlier version active and analyzes it.
func (m *Machine) SelectHistory(ctx context.Context, id int) error {
	var selected domain.PromptVersion
	epoch, err := m.begin(ctx, historySelected{id: id}, func(s State) error {
		if s.Mode == ModeInitial {
			return domain.ErrInvalidTransition
		}
		var ok bool
		if selected, ok = domain.FindPrompt(s.History, id); !ok {
			return domain.ErrPromptNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	return m.analyze(ctx, epoch, selected.Content, false)
}

// Reset drops everything, including persisted state. An operation still in
// flight is detached: its later results are discarded.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	m.epoch++
	m.state = Reduce(m.state, resetRequested{})
	m.saved = persisted{}
	forget(ctx, m.store, m.scope)
	snap := m.state
	observers := m.observerList()
	m.mu.Unlock()

	if m.hooks.OnReset != nil {
		m.hooks.OnReset(m.scope)
	}
	notify(observers, snap)
}

func (m *Machine) analyze(ctx context.Context, epoch uint64, prompt string, clearChat bool) error {
	analysis, err := m.assistant.Critique(ctx, prompt)
	if err != nil {
		return m.fail(ctx, epoch, "critique", err, analysisFailed{err: llm.UserMessage(err), clearChat: clearChat})
	}
	return m.commit(ctx, epoch, transcriptReplaced{message: service.AnalysisMessage(analysis)})
}

// drain forwards each chunk of seq as an action and returns the whole text.
// Returning early stops the stream.
func (m *Machine) drain(ctx context.Context, epoch uint64, seq iter.Seq2[string, error], toAction func(string) Action) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		if err := m.commit(ctx, epoch, toAction(chunk)); err != nil {
			return b.String(), err
		}
	}
	return b.String(), nil
}

// fail records a failed operation. A session reset while the operation ran
// is reported as such and leaves the fresh state alone.
func (m *Machine) fail(ctx context.Context, epoch uint64, op string, err error, a Action) error {
	if errors.Is(err, domain.ErrSessionReset) {
		return err
	}
	slog.Error("session operation failed", "scope", m.scope, "op", op, "kind", llm.Classify(err).String(), "error", err)
	if m.hooks.OnFailure != nil {
		m.hooks.OnFailure(m.scope, op, err)
	}
	if cerr := m.commit(ctx, epoch, a); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// begin starts an intent: it checks the gate and pre under the lock and
// applies a. The returned epoch identifies the operation.
func (m *Machine) begin(ctx context.Context, a Action, pre func(State) error) (uint64, error) {
	return m.apply(ctx, a, func(s State, _ uint64) error {
		if !s.Idle() {
			return domain.ErrBusy
		}
		return pre(s)
	})
}

// commit applies a unless the session was reset since epoch.
func (m *Machine) commit(ctx context.Context, epoch uint64, a Action) error {
	_, err := m.apply(ctx, a, func(_ State, current uint64) error {
		if current != epoch {
			return domain.ErrSessionReset
		}
		return nil
	})
	return err
}

func (m *Machine) apply(ctx context.Context, a Action, guard func(State, uint64) error) (uint64, error) {
	m.mu.Lock()
	if err := guard(m.state, m.epoch); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.state = Reduce(m.state, a)
	snap, epoch := m.state, m.epoch

	next := snapshotOf(snap)
	save(ctx, m.store, m.scope, m.saved, next)
	m.saved = next

	observers := m.observerList()
	m.mu.Unlock()

	notify(observers, snap)
	return epoch, nil
}

func (m *Machine) observerList() []func(State) {
	if len(m.observers) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}
