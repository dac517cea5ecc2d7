package corpus

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a versioned set of corpus chunks, authored as YAML:
//
//	id: python-basics
//	version: 2
//	chunks:
//	  - id: py-loops-1
//	    topic: python
//	    subtopic: loops
//	    summary: ...
//	    tags: [loops]
//	    source: docs.python.org/3/tutorial
type Pack struct {
	ID      string      `yaml:"id"`
	Version int         `yaml:"version"`
	Chunks  []PackChunk `yaml:"chunks"`
}

type PackChunk struct {
	ID       string   `yaml:"id"`
	Topic    string   `yaml:"topic"`
	Subtopic string   `yaml:"subtopic"`
	Summary  string   `yaml:"summary"`
	Tags     []string `yaml:"tags"`
	Source   string   `yaml:"source"`
}

// EmbeddingText is what gets embedded for a chunk.
func (c PackChunk) EmbeddingText() string {
	parts := []string{strings.TrimSpace(c.Topic)}
	if s := strings.TrimSpace(c.Subtopic); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, strings.TrimSpace(c.Summary))
	return strings.Join(parts, ": ")
}

func ParsePack(raw []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("corpus pack: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoadPackFile(path string) (*Pack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParsePack(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate normalizes topics to lower case and rejects incomplete or
// duplicate chunks.
func (p *Pack) Validate() error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return fmt.Errorf("corpus pack: id required")
	}
	if p.Version <= 0 {
		p.Version = 1
	}
	seen := make(map[string]struct{}, len(p.Chunks))
	for i := range p.Chunks {
		c := &p.Chunks[i]
		c.ID = strings.TrimSpace(c.ID)
		c.Topic = strings.ToLower(strings.TrimSpace(c.Topic))
		c.Summary = strings.TrimSpace(c.Summary)
		if c.ID == "" || c.Topic == "" || c.Summary == "" {
			return fmt.Errorf("corpus pack %s: chunk %d needs id, topic and summary", p.ID, i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("corpus pack %s: duplicate chunk id %q", p.ID, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
