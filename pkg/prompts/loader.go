// Package prompts loads YAML prompt sets. Sets ship embedded in the binary and
// can be overridden per deployment by dropping a file with the same name into
// the configured directory.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var embedded embed.FS

var ErrUnknownPrompt = errors.New("unknown prompt")

type Loader struct {
	dir string

	mu   sync.RWMutex
	raw  map[string][]byte
	sets map[string]*Set
}

// NewLoader reads from dir first (if non-empty) and falls back to the
// embedded templates.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:  dir,
		raw:  make(map[string][]byte),
		sets: make(map[string]*Set),
	}
}

// Raw returns the bytes of <name>.yaml.
func (l *Loader) Raw(name string) ([]byte, error) {
	l.mu.RLock()
	data, ok := l.raw[name]
	l.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := l.read(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.raw[name] = data
	l.mu.Unlock()
	return data, nil
}

func (l *Loader) read(name string) ([]byte, error) {
	file := name + ".yaml"
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read prompt %s: %w", file, err)
		}
	}
	data, err := embedded.ReadFile("templates/" + file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}
	return data, nil
}

// Set returns the parsed string entries of <name>.yaml.
func (l *Loader) Set(name string) (*Set, error) {
	l.mu.RLock()
	s, ok := l.sets[name]
	l.mu.RUnlock()
	if ok {
		return s, nil
	}

	data, err := l.Raw(name)
	if err != nil {
		return nil, err
	}
	s, err = ParseSet(name, data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.sets[name] = s
	l.mu.Unlock()
	return s, nil
}

// Set is the flat view of a prompt file: every top-level string value,
// addressable by key and renderable as a text/template.
type Set struct {
	name   string
	values map[string]string

	mu        sync.Mutex
	templates map[string]*template.Template
}

func ParseSet(name string, data []byte) (*Set, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", name, err)
	}
	values := make(map[string]string, len(doc))
	for k, v := range doc {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	return &Set{name: name, values: values, templates: make(map[string]*template.Template)}, nil
}

func (s *Set) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Text returns the raw value or an empty string.
func (s *Set) Text(key string) string {
	return s.values[key]
}

// Render executes the entry as a text/template against data.
func (s *Set) Render(key string, data interface{}) (string, error) {
	tmpl, err := s.template(key)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s.%s: %w", s.name, key, err)
	}
	return buf.String(), nil
}

func (s *Set) template(key string) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.templates[key]; ok {
		return t, nil
	}
	src, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownPrompt, s.name, key)
	}
	t, err := template.New(s.name + "." + key).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template %s.%s: %w", s.name, key, err)
	}
	s.templates[key] = t
	return t, nil
}
