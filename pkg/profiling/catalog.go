package profiling

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMinAnswerTokens = 3
	DefaultMaxFollowUps    = 3
)

// QuestionDefinition is one immutable entry of the catalog.
type QuestionDefinition struct {
	ID                string    `yaml:"id" json:"id"`
	Category          string    `yaml:"category" json:"category"`
	Prompt            string    `yaml:"question" json:"question"`
	Context           string    `yaml:"context" json:"-"`
	Critical          bool      `yaml:"critical" json:"is_critical"`
	MinAnswerTokens   int       `yaml:"min_tokens" json:"min_answer_tokens"`
	RequiredInfo      []string  `yaml:"required_info" json:"required_info"`
	FollowUpTemplates []string  `yaml:"follow_up_questions" json:"-"`
	MaxFollowUps      int       `yaml:"max_follow_ups" json:"max_follow_ups"`
	ValueKind         ValueKind `yaml:"value_kind" json:"value_kind"`
	AllowedValues     []string  `yaml:"allowed_values" json:"allowed_values,omitempty"`
	Default           string    `yaml:"default" json:"-"`
	ExtractsTo        string    `yaml:"extracts_to" json:"extracts_to"`
	ExamplesIfUnclear []string  `yaml:"examples_if_unclear" json:"examples,omitempty"`
}

// clone copies the slice fields so the result shares no backing arrays
// with the catalog.
func (q QuestionDefinition) clone() QuestionDefinition {
	q.RequiredInfo = append([]string(nil), q.RequiredInfo...)
	q.FollowUpTemplates = append([]string(nil), q.FollowUpTemplates...)
	q.AllowedValues = append([]string(nil), q.AllowedValues...)
	q.ExamplesIfUnclear = append([]string(nil), q.ExamplesIfUnclear...)
	return q
}

func (q QuestionDefinition) allows(v string) bool {
	for _, a := range q.AllowedValues {
		if a == v {
			return true
		}
	}
	return false
}

type catalogFile struct {
	IntroMessage      string `yaml:"intro_message"`
	CompletionMessage string `yaml:"completion_message"`
	ValidationRules   struct {
		MinTokens           int `yaml:"min_tokens"`
		MaxFollowUpAttempts int `yaml:"max_follow_up_attempts"`
	} `yaml:"validation_rules"`
	Questions []QuestionDefinition `yaml:"questions"`
}

// Catalog is the ordered, immutable question sequence. Accessors hand out
// copies so callers cannot mutate it.
type Catalog struct {
	questions  []QuestionDefinition
	index      map[string]int
	intro      string
	completion string
}

// LoadCatalog parses the catalog YAML and applies the validation_rules
// defaults to every question that does not override them.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(file.Questions, file.ValidationRules.MinTokens, file.ValidationRules.MaxFollowUpAttempts, file.IntroMessage, file.CompletionMessage)
}

func NewCatalog(questions []QuestionDefinition, minTokens, maxFollowUps int, intro, completion string) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}
	if minTokens <= 0 {
		minTokens = DefaultMinAnswerTokens
	}
	if maxFollowUps <= 0 {
		maxFollowUps = DefaultMaxFollowUps
	}

	c := &Catalog{
		questions:  make([]QuestionDefinition, len(questions)),
		index:      make(map[string]int, len(questions)),
		intro:      intro,
		completion: completion,
	}
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("catalog question %d has no id", i)
		}
		if _, dup := c.index[q.ID]; dup {
			return nil, fmt.Errorf("catalog question id %q is duplicated", q.ID)
		}
		if q.MinAnswerTokens <= 0 {
			q.MinAnswerTokens = minTokens
		}
		if q.MaxFollowUps <= 0 {
			q.MaxFollowUps = maxFollowUps
		}
		if q.ValueKind == "" {
			q.ValueKind = KindString
		}
		if !q.ValueKind.valid() {
			return nil, fmt.Errorf("catalog question %q has unknown value_kind %q", q.ID, q.ValueKind)
		}
		if q.ValueKind == KindEnum && len(q.AllowedValues) == 0 {
			return nil, fmt.Errorf("catalog question %q is an enum without allowed_values", q.ID)
		}
		c.questions[i] = q.clone()
		c.index[q.ID] = i
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.questions) }

// At returns the question at position i.
func (c *Catalog) At(i int) (QuestionDefinition, bool) {
	if i < 0 || i >= len(c.questions) {
		return QuestionDefinition{}, false
	}
	return c.questions[i].clone(), true
}

func (c *Catalog) ByID(id string) (QuestionDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return QuestionDefinition{}, false
	}
	return c.questions[i].clone(), true
}

func (c *Catalog) Questions() []QuestionDefinition {
	out := make([]QuestionDefinition, len(c.questions))
	for i, q := range c.questions {
		out[i] = q.clone()
	}
	return out
}

func (c *Catalog) CriticalIDs() []string {
	var ids []string
	for _, q := range c.questions {
		if q.Critical {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func (c *Catalog) Intro() string      { return c.intro }
func (c *Catalog) Completion() string { return c.completion }
