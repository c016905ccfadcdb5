package questionbank

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Question is one immutable bank entry.
type Question struct {
	Index    int
	Prompt   string
	Keywords []string
}

// Bank is an ordered, read-only sequence of questions.
type Bank struct {
	name      string
	questions []Question
}

type bankFile struct {
	Name      string      `yaml:"name"`
	Questions []entryFile `yaml:"questions"`
}

type entryFile struct {
	Prompt   string   `yaml:"prompt"`
	Keywords []string `yaml:"keywords"`
}

// Entry describes a question before indices are assigned.
type Entry struct {
	Prompt   string
	Keywords []string
}

// New builds a bank from entries. Keywords are lowercased and trimmed; indices follow entry order.
func New(name string, entries []Entry) (*Bank, error) {
	b := &Bank{name: name, questions: make([]Question, 0, len(entries))}
	for i, e := range entries {
		keywords := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			keywords = append(keywords, strings.ToLower(strings.TrimSpace(kw)))
		}
		b.questions = append(b.questions, Question{
			Index:    i,
			Prompt:   strings.TrimSpace(e.Prompt),
			Keywords: keywords,
		})
	}
	if err := Validate(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Load reads a bank from a YAML file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML bank document.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	entries := make([]Entry, 0, len(f.Questions))
	for _, q := range f.Questions {
		entries = append(entries, Entry{Prompt: q.Prompt, Keywords: q.Keywords})
	}
	return New(f.Name, entries)
}

// Validate ensures every question has a prompt and a non-empty set of distinct keywords.
func Validate(b *Bank) error {
	if b == nil || len(b.questions) == 0 {
		return fmt.Errorf("question bank must contain at least one question")
	}
	for _, q := range b.questions {
		if q.Prompt == "" {
			return fmt.Errorf("question %d: prompt is required", q.Index)
		}
		if len(q.Keywords) == 0 {
			return fmt.Errorf("question %d: at least one keyword is required", q.Index)
		}
		seen := make(map[string]struct{}, len(q.Keywords))
		for _, kw := range q.Keywords {
			if kw == "" {
				return fmt.Errorf("question %d: keywords must not be empty", q.Index)
			}
			if strings.ContainsFunc(kw, unicode.IsSpace) {
				return fmt.Errorf("question %d: keyword %q must be a single term", q.Index, kw)
			}
			if _, dup := seen[kw]; dup {
				return fmt.Errorf("question %d: duplicate keyword %q", q.Index, kw)
			}
			seen[kw] = struct{}{}
		}
	}
	return nil
}

// Name returns the bank's display name.
func (b *Bank) Name() string { return b.name }

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// Question returns the entry at index i. The keyword slice is a copy.
func (b *Bank) Question(i int) (Question, bool) {
	if i < 0 || i >= len(b.questions) {
		return Question{}, false
	}
	return clone(b.questions[i]), true
}

// All returns copies of every question in order.
func (b *Bank) All() []Question {
	out := make([]Question, 0, len(b.questions))
	for _, q := range b.questions {
		out = append(out, clone(q))
	}
	return out
}

func clone(q Question) Question {
	q.Keywords = append([]string(nil), q.Keywords...)
	return q
}
