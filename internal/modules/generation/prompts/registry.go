package prompts

import (
	"fmt"
	"strings"
	"sync"
)

type Template struct {
	Name       PromptName
	Version    int
	SchemaName string
	Schema     func() map[string]any
	System     func(Input) (string, error)
	User       func(Input) (string, error)
	Validate   Validator
}

var (
	mu       sync.RWMutex
	registry = map[PromptName]Template{}
	loadOnce sync.Once
)

// Register adds or replaces a compiled Template.
func Register(t Template) {
	mu.Lock()
	defer mu.Unlock()
	registry[t.Name] = t
}

func lookup(name PromptName) (Template, bool) {
	loadOnce.Do(RegisterAll)
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[name]
	return t, ok
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	t, ok := lookup(name)
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	sys, err := t.System(in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s system render: %w", string(name), err)
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s user render: %w", string(name), err)
	}
	return Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		Schema:     t.Schema(),
		System:     sys,
		User:       user,
	}, nil
}

// Version reports the registered version of name, or 0.
func Version(name PromptName) int {
	t, ok := lookup(name)
	if !ok {
		return 0
	}
	return t.Version
}
