// Package compatibility scores how well a group of travelers' profiles fit
// together. Analysis is a pure function of the profile snapshots.
package compatibility

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type Level string

const (
	LevelHigh       Level = "high"
	LevelMedium     Level = "medium"
	LevelLow        Level = "low"
	LevelConflicted Level = "conflicted"
)

// Dimension is one weighted preference compared between travelers. Key is
// the preference field name in the profile.
type Dimension struct {
	Key    string  `json:"key" yaml:"key"`
	Weight float64 `json:"weight" yaml:"weight"`
}

func DefaultDimensions() []Dimension {
	return []Dimension{
		{Key: "traveler_type", Weight: 0.30},
		{Key: "activity_level", Weight: 0.25},
		{Key: "accommodation_style", Weight: 0.15},
		{Key: "environment", Weight: 0.20},
		{Key: "budget_sensitivity", Weight: 0.10},
	}
}

type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
	// CompromiseSeverity flags compromise when any conflict reaches it.
	CompromiseSeverity float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.5, Low: 0.3, CompromiseSeverity: 0.5}
}

// Participant is the frozen view of one traveler taken at join time.
type Participant struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name,omitempty"`
	Preferences map[string]string `json:"preferences"`
}

type Conflict struct {
	Dimension string `json:"dimension"`
	// Plurality is the most common value; ties go to the lexically first.
	Plurality string `json:"plurality"`
	// Values maps each value to the participants holding it.
	Values    map[string][]string `json:"values"`
	Divergent []string            `json:"divergent_participants"`
	Severity  float64             `json:"severity"`
}

type Report struct {
	Score             float64            `json:"score"`
	Level             Level              `json:"level"`
	Conflicts         []Conflict         `json:"conflicts"`
	ParticipantScores map[string]float64 `json:"participant_scores"`
	CompromiseNeeded  bool               `json:"compromise_needed"`
	CommonGround      []string           `json:"common_ground"`
	SuggestedApproach string             `json:"suggested_approach"`
	ParticipantCount  int                `json:"participant_count"`
	// Rationale is optional narration and never feeds back into the numbers.
	Rationale string `json:"rationale,omitempty"`
}

// ConflictDimensions lists the dimensions in conflict, in report order.
func (r Report) ConflictDimensions() []string {
	out := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		out = append(out, c.Dimension)
	}
	return out
}

type Engine struct {
	dimensions []Dimension
	thresholds Thresholds
}

func NewEngine(dimensions []Dimension, thresholds Thresholds) (*Engine, error) {
	if len(dimensions) == 0 {
		return nil, fmt.Errorf("compatibility: no dimensions")
	}
	total := 0.0
	seen := map[string]bool{}
	for _, d := range dimensions {
		if d.Key == "" || d.Weight < 0 {
			return nil, fmt.Errorf("compatibility: invalid dimension %+v", d)
		}
		if seen[d.Key] {
			return nil, fmt.Errorf("compatibility: dimension %q is duplicated", d.Key)
		}
		seen[d.Key] = true
		total += d.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("compatibility: weights sum to zero")
	}
	return &Engine{
		dimensions: append([]Dimension(nil), dimensions...),
		thresholds: thresholds,
	}, nil
}

var defaultEngine = func() *Engine {
	e, err := NewEngine(DefaultDimensions(), DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return e
}()

func Default() *Engine { return defaultEngine }

// Analyze runs the default engine.
func Analyze(participants []Participant) Report {
	return defaultEngine.Analyze(participants)
}

func (e *Engine) Dimensions() []Dimension {
	return append([]Dimension(nil), e.dimensions...)
}

func (e *Engine) Analyze(participants []Participant) Report {
	n := len(participants)
	report := Report{
		Conflicts:         []Conflict{},
		ParticipantScores: make(map[string]float64, n),
		CommonGround:      []string{},
		ParticipantCount:  n,
	}

	if n < 2 {
		report.Score = 1
		report.Level = LevelHigh
		report.SuggestedApproach = "Waiting for more participants to join"
		for _, p := range participants {
			report.ParticipantScores[p.ID] = 1
		}
		if n == 1 {
			for _, d := range e.dimensions {
				if v := participants[0].Preferences[d.Key]; v != "" {
					report.CommonGround = append(report.CommonGround, d.Key+": "+v)
				}
			}
		}
		return report
	}

	// Pairwise agreement.
	sums := make([]float64, n)
	pairTotal := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := e.pairScore(participants[i], participants[j])
			sums[i] += s
			sums[j] += s
			pairTotal += s
			pairs++
		}
	}
	report.Score = round(pairTotal / float64(pairs))
	for i, p := range participants {
		report.ParticipantScores[p.ID] = round(sums[i] / float64(n-1))
	}

	// Per-dimension conflicts.
	maxSeverity := 0.0
	for _, d := range e.dimensions {
		values := map[string][]string{}
		unset := 0
		for _, p := range participants {
			v := p.Preferences[d.Key]
			if v == "" {
				unset++
				continue
			}
			values[v] = append(values[v], p.ID)
		}
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			if unset == 0 {
				for v := range values {
					report.CommonGround = append(report.CommonGround, d.Key+": "+v)
				}
			}
			continue
		}

		plurality := pluralityValue(values)
		c := Conflict{
			Dimension: d.Key,
			Plurality: plurality,
			Values:    values,
			Divergent: []string{},
			Severity:  round(1 - float64(len(values[plurality]))/float64(n)),
		}
		for _, p := range participants {
			if v := p.Preferences[d.Key]; v != "" && v != plurality {
				c.Divergent = append(c.Divergent, p.ID)
			}
		}
		if c.Severity > maxSeverity {
			maxSeverity = c.Severity
		}
		report.Conflicts = append(report.Conflicts, c)
	}

	report.Level = e.level(report.Score)
	report.CompromiseNeeded = report.Level == LevelLow || report.Level == LevelConflicted ||
		(len(report.Conflicts) > 0 && maxSeverity >= e.thresholds.CompromiseSeverity)
	report.SuggestedApproach = e.approach(report)
	return report
}

// pairScore is the weighted share of dimensions on which a and b hold the
// same value, in [0,1]. A dimension either side left unset never agrees.
func (e *Engine) pairScore(a, b Participant) float64 {
	agreed, total := 0.0, 0.0
	for _, d := range e.dimensions {
		total += d.Weight
		va, vb := a.Preferences[d.Key], b.Preferences[d.Key]
		if va != "" && va == vb {
			agreed += d.Weight
		}
	}
	return agreed / total
}

func (e *Engine) level(score float64) Level {
	switch {
	case score >= e.thresholds.High:
		return LevelHigh
	case score >= e.thresholds.Medium:
		return LevelMedium
	case score >= e.thresholds.Low:
		return LevelLow
	default:
		return LevelConflicted
	}
}

const unknownGroupApproach = "Too little is known about the group, ask everyone about travel style, activity and budget first"

func (e *Engine) approach(r Report) string {
	switch r.Level {
	case LevelHigh:
		if len(r.Conflicts) == 0 {
			return "Everyone is aligned, suggest destinations that play to the shared style"
		}
		return fmt.Sprintf("Mostly aligned, build on common ground and settle %s", strings.Join(r.ConflictDimensions(), ", "))
	case LevelMedium:
		return fmt.Sprintf("Find destinations that offer variety across %s", strings.Join(r.ConflictDimensions(), ", "))
	case LevelLow:
		if len(r.Conflicts) == 0 {
			return unknownGroupApproach
		}
		return "Propose compromise destinations and alternate activities between preferences"
	default:
		if len(r.Conflicts) == 0 {
			return unknownGroupApproach
		}
		return "Mediate first: agree on priorities before suggesting destinations"
	}
}

func pluralityValue(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if len(values[k]) > len(values[best]) {
			best = k
		}
	}
	return best
}

// round keeps reported figures to four places so threshold comparisons are
// not decided by floating point noise.
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
