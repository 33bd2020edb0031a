package session

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/service"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAssistant answers with canned values unless a func overrides a step.
type fakeAssistant struct {
	enhance  func(ctx context.Context, idea string) (service.Enhancement, error)
	critique func(ctx context.Context, prompt string) (domain.CritiqueAndQuestions, error)
	chat     func(prompt string, prior []domain.ChatMessage, text string) iter.Seq2[string, error]
	evaluate func(prompt string) iter.Seq2[string, error]
	refine   func(prompt, evaluation string) iter.Seq2[string, error]

	mu        sync.Mutex
	critiqued []string
	evaluated []string
}

func (f *fakeAssistant) Enhance(ctx context.Context, idea string) (service.Enhancement, error) {
	if f.enhance != nil {
		return f.enhance(ctx, idea)
	}
	return service.Enhancement{
		Prompt:  "Enhanced: " + idea,
		Message: domain.ChatMessage{Role: domain.RoleModel, Content: "Here is your prompt."},
	}, nil
}

func (f *fakeAssistant) Critique(ctx context.Context, prompt string) (domain.CritiqueAndQuestions, error) {
	f.mu.Lock()
	f.critiqued = append(f.critiqued, prompt)
	f.mu.Unlock()
	if f.critique != nil {
		return f.critique(ctx, prompt)
	}
	return domain.CritiqueAndQuestions{Critique: "Looks fine.", Questions: []string{"Audience?"}}, nil
}

func (f *fakeAssistant) Chat(_ context.Context, prompt string, prior []domain.ChatMessage, text string) iter.Seq2[string, error] {
	if f.chat != nil {
		return f.chat(prompt, prior, text)
	}
	return stream(nil, "ok")
}

func (f *fakeAssistant) Evaluate(_ context.Context, prompt string) iter.Seq2[string, error] {
	f.mu.Lock()
	f.evaluated = append(f.evaluated, prompt)
	f.mu.Unlock()
	if f.evaluate != nil {
		return f.evaluate(prompt)
	}
	return stream(nil, "Weak ", "structure.")
}

func (f *fakeAssistant) Refine(_ context.Context, prompt, evaluation string) iter.Seq2[string, error] {
	if f.refine != nil {
		return f.refine(prompt, evaluation)
	}
	return stream(nil, "```\n", "better ", prompt, "\n```")
}

func stream(err error, chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

type memStore struct {
	mu      sync.Mutex
	values  map[string]string
	failPut error
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[scope+"/"+key]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.values[scope+"/"+key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, scope+"/"+k)
	}
	return nil
}

func (s *memStore) get(scope, key string) (string, bool) {
	v, ok, _ := s.Get(context.Background(), scope, key)
	return v, ok
}
