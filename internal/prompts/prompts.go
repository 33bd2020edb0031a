// Package prompts holds the instruction templates sent to the model and a
// minimal placeholder renderer.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template ids.
const (
	Enhance         = "enhance"
	EnhanceSystem   = "enhance_system"
	Critique        = "critique"
	CritiqueSystem  = "critique_system"
	CritiqueRequest = "critique_request"
	ChatSystem      = "chat_system"
	Evaluate        = "evaluate"
	Refine          = "refine"
)

// Placeholder names.
const (
	UserPrompt       = "USER_PROMPT"
	PromptToAnalyze  = "PROMPT_TO_ANALYZE"
	CurrentPrompt    = "CURRENT_PROMPT"
	PromptToCritique = "PROMPT_TO_CRITIQUE"
	PromptToImprove  = "PROMPT_TO_IMPROVE"
	CritiqueText     = "CRITIQUE"
)

//go:embed templates.yaml
var defaultTemplates []byte

type templateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// Engine renders named templates. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	templates map[string]string
}

// Default returns the engine built from the embedded templates.
func Default() *Engine {
	e, err := parse(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded templates: %v", err))
	}
	return e
}

// Load returns the embedded templates overlaid with the ones from path.
// An empty path yields the defaults.
func Load(path string) (*Engine, error) {
	e := Default()
	if path == "" {
		return e, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	overlay, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	for id, text := range overlay.templates {
		e.templates[id] = text
	}
	return e, nil
}

func parse(data []byte) (*Engine, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("no templates defined")
	}
	e := &Engine{templates: make(map[string]string, len(f.Templates))}
	for id, text := range f.Templates {
		e.templates[id] = text
	}
	return e, nil
}

// Has reports whether a template with the id exists.
func (e *Engine) Has(id string) bool {
	_, ok := e.templates[id]
	return ok
}

// Render substitutes every {{NAME}} present in bindings with its value.
// Placeholders without a binding are left as they are, and values are never
// rescanned for placeholders. Unknown ids render as "".
func (e *Engine) Render(id string, bindings map[string]string) string {
	text, ok := e.templates[id]
	if !ok || len(bindings) == 0 {
		return text
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{{"+name+"}}", bindings[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
