package profiling

import (
	"context"
	"sync"
	"testing"

	"trawell-be/pkg/identity"
	"trawell-be/pkg/prompts"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChecker accepts or rejects answers by question id without any
// understanding function.
type scriptedChecker struct {
	mu       sync.Mutex
	reject   map[string]bool
	values   map[string]ExtractedValue
	followUp int
}

func (c *scriptedChecker) Validate(_ context.Context, q QuestionDefinition, answer string, _ int) Assessment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if CountTokens(answer) < q.MinAnswerTokens || c.reject[q.ID] {
		return Assessment{Status: Insufficient, Feedback: "more please"}
	}
	if v, ok := c.values[q.ID]; ok {
		return Assessment{Status: Sufficient, Value: v}
	}
	return Assessment{Status: Sufficient, Value: fallbackValue(q, answer)}
}

func (c *scriptedChecker) FollowUp(_ context.Context, q QuestionDefinition, _ string, n int) string {
	c.mu.Lock()
	c.followUp++
	c.mu.Unlock()
	if n < len(q.FollowUpTemplates) {
		return q.FollowUpTemplates[n]
	}
	return "tell me more"
}

func embeddedCatalog(t *testing.T) *Catalog {
	t.Helper()
	data, err := prompts.NewLoader("").Raw("profiling")
	require.NoError(t, err)
	c, err := LoadCatalog(data)
	require.NoError(t, err)
	return c
}

func newTestMachine(t *testing.T, checker AnswerChecker) *Machine {
	t.Helper()
	return NewMachine(embeddedCatalog(t), checker, DefaultPolicy())
}

const goodAnswer = "I really love exploring new places"

var testUserID = uuid.MustParse("5b0c1a8e-8f3e-4c1a-9d55-0f6f4d2e7a11")

// answerCurrent submits a good answer to whatever question is pending.
func answerCurrent(t *testing.T, m *Machine, s *Session, answer string) Outcome {
	t.Helper()
	q, ok := m.CurrentQuestion(s)
	require.True(t, ok)
	out, _, err := m.SubmitAnswer(context.Background(), s, q.ID, answer)
	require.NoError(t, err)
	return out
}

func TestMachine_Start(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})
	owner := identity.NewAnonymous()

	t.Run("NoOwner", func(t *testing.T) {
		_, err := m.Start(identity.Identity{}, nil)
		assert.ErrorIs(t, err, ErrNoOwner)
	})

	t.Run("Fresh", func(t *testing.T) {
		s, err := m.Start(owner, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, s.Status)
		assert.Equal(t, 0, s.CurrentIndex)
		assert.Empty(t, s.Responses)
		assert.Equal(t, owner, s.Owner)
	})

	t.Run("DuplicateActive", func(t *testing.T) {
		active, err := m.Start(owner, nil)
		require.NoError(t, err)
		_, err = m.Start(owner, active)
		assert.ErrorIs(t, err, ErrDuplicateActiveSession)
	})

	t.Run("AbandonedDoesNotSeed", func(t *testing.T) {
		old, err := m.Start(owner, nil)
		require.NoError(t, err)
		answerCurrent(t, m, old, goodAnswer)
		require.NoError(t, m.Abandon(old))

		s, err := m.Start(owner, old)
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, s.ID)
		assert.Equal(t, 0, s.CurrentIndex)
		assert.Empty(t, s.Responses)
		assert.Zero(t, s.Completeness)
	})
}

func TestMachine_SubmitAnswer_StaleQuestion(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)

	_, _, err = m.SubmitAnswer(context.Background(), s, "environment", goodAnswer)
	assert.ErrorIs(t, err, ErrStaleQuestion)
	assert.Empty(t, s.Responses)
	assert.Equal(t, 0, s.CurrentIndex)
}

func TestMachine_SubmitAnswer_TerminalSession(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)
	require.NoError(t, m.Abandon(s))

	_, _, err = m.SubmitAnswer(context.Background(), s, "traveler_type", goodAnswer)
	assert.ErrorIs(t, err, ErrSessionTerminal)
}

func TestMachine_FollowUpCapThenForceAccept(t *testing.T) {
	checker := &scriptedChecker{reject: map[string]bool{"traveler_type": true}}
	m := newTestMachine(t, checker)
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)

	q, _ := m.CurrentQuestion(s)
	for i := 0; i < q.MaxFollowUps; i++ {
		out, next, err := m.SubmitAnswer(context.Background(), s, q.ID, "not sure really honestly")
		require.NoError(t, err)
		assert.False(t, out.Advanced, "attempt %d", i)
		assert.Equal(t, Insufficient, out.Status)
		assert.NotEmpty(t, out.FollowUp)
		assert.Equal(t, i+1, out.FollowUpCount)
		require.NotNil(t, next)
		assert.Equal(t, q.ID, next.ID)
		assert.Equal(t, 0, s.CurrentIndex)
	}
	assert.Equal(t, q.MaxFollowUps, checker.followUp)

	out, next, err := m.SubmitAnswer(context.Background(), s, q.ID, "not sure really honestly")
	require.NoError(t, err)
	assert.True(t, out.Advanced)
	assert.True(t, out.ForceAccepted)
	assert.Equal(t, Sufficient, out.Status)
	assert.Equal(t, q.MaxFollowUps, out.FollowUpCount)
	assert.Equal(t, EnumValue(q.Default), out.Value)
	require.NotNil(t, next)
	assert.Equal(t, 1, s.CurrentIndex)

	r, ok := s.Response(q.ID)
	require.True(t, ok)
	assert.LessOrEqual(t, r.FollowUpCount, q.MaxFollowUps)
}

func TestMachine_FollowUpUsesTemplateForAttempt(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)

	q, _ := m.CurrentQuestion(s)
	require.NotEmpty(t, q.FollowUpTemplates)

	out, _, err := m.SubmitAnswer(context.Background(), s, q.ID, "dunno")
	require.NoError(t, err)
	assert.Equal(t, q.FollowUpTemplates[0], out.FollowUp)
}

func TestMachine_CompletenessIsMonotonic(t *testing.T) {
	checker := &scriptedChecker{reject: map[string]bool{"accommodation": true}}
	m := newTestMachine(t, checker)
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)

	answers := []string{goodAnswer, "no", goodAnswer, "hmm", goodAnswer, goodAnswer, "x", goodAnswer}
	prev := 0.0
	for i := 0; i < 100; i++ {
		q, ok := m.CurrentQuestion(s)
		if !ok {
			break
		}
		_, _, err := m.SubmitAnswer(context.Background(), s, q.ID, answers[i%len(answers)])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Completeness, prev)
		prev = s.Completeness
	}
	assert.Equal(t, m.Catalog().Len(), s.CurrentIndex)
}

func TestMachine_CriticalCap(t *testing.T) {
	c := embeddedCatalog(t)
	critical := map[string]bool{}
	for _, id := range c.CriticalIDs() {
		critical[id] = true
	}
	require.Equal(t, map[string]bool{
		"traveler_type": true, "activity_level": true, "environment": true, "budget_sensitivity": true,
	}, critical)

	m := NewMachine(c, &scriptedChecker{}, DefaultPolicy())

	t.Run("UnansweredCriticalCaps", func(t *testing.T) {
		s := &Session{ID: "prof_cap", Owner: identity.NewAnonymous(), Status: StatusInProgress}
		for _, q := range c.Questions() {
			st := Sufficient
			if q.ID == "environment" {
				st = Insufficient
			}
			s.Responses = append(s.Responses, &Response{QuestionID: q.ID, Status: st})
		}
		assert.InDelta(t, 0.79, m.Completeness(s), 1e-9)
		s.Completeness = m.Completeness(s)
		assert.False(t, m.CanComplete(s))
		_, err := m.Complete(s)
		assert.ErrorIs(t, err, ErrIncompleteProfile)
	})

	t.Run("NoCapBelowThresholdWithCriticalsAnswered", func(t *testing.T) {
		s := &Session{ID: "prof_nocap", Owner: identity.NewAnonymous(), Status: StatusInProgress}
		others := 0
		for _, q := range c.Questions() {
			if q.Critical {
				s.Responses = append(s.Responses, &Response{QuestionID: q.ID, Status: Complete})
			} else if others < 6 {
				s.Responses = append(s.Responses, &Response{QuestionID: q.ID, Status: Sufficient})
				others++
			}
		}
		assert.InDelta(t, 10.0/13.0, m.Completeness(s), 1e-9)
	})
}

// Four criticals plus six others is 10/13; two more accepted answers reach
// 12/13 and completion.
func TestMachine_TenThenTwelveOfThirteen(t *testing.T) {
	c := embeddedCatalog(t)
	require.Equal(t, 13, c.Len())

	reject := map[string]bool{}
	var nonCritical []string
	for _, q := range c.Questions() {
		if !q.Critical {
			nonCritical = append(nonCritical, q.ID)
		}
	}
	// Leave the last three non-critical questions unanswered for now.
	for _, id := range nonCritical[6:] {
		reject[id] = true
	}

	checker := &scriptedChecker{reject: reject}
	m := NewMachine(c, checker, DefaultPolicy())
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)

	// Walk the whole catalog; rejected questions keep the pointer until the
	// cap force-accepts them, so stop before that happens.
	for {
		q, ok := m.CurrentQuestion(s)
		require.True(t, ok)
		if reject[q.ID] {
			break
		}
		answerCurrent(t, m, s, goodAnswer)
	}
	assert.InDelta(t, 10.0/13.0, s.Completeness, 1e-9)
	assert.False(t, m.CanComplete(s))
	_, err = m.Complete(s)
	assert.ErrorIs(t, err, ErrIncompleteProfile)

	checker.mu.Lock()
	delete(checker.reject, nonCritical[6])
	delete(checker.reject, nonCritical[7])
	checker.mu.Unlock()

	out := answerCurrent(t, m, s, goodAnswer)
	assert.InDelta(t, 11.0/13.0, out.Completeness, 1e-9)
	out = answerCurrent(t, m, s, goodAnswer)
	assert.InDelta(t, 12.0/13.0, out.Completeness, 1e-9)
	assert.True(t, out.CanComplete)

	p, err := m.Complete(s)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.NotNil(t, s.CompletedAt)
	assert.Equal(t, s.ID, p.SourceSessionID)
}

func completeSession(t *testing.T, m *Machine) *Session {
	t.Helper()
	s, err := m.Start(identity.User(testUserID), nil)
	require.NoError(t, err)
	for {
		if _, ok := m.CurrentQuestion(s); !ok {
			break
		}
		answerCurrent(t, m, s, goodAnswer)
	}
	return s
}

func TestMachine_CompleteIsIdempotent(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{values: map[string]ExtractedValue{
		"traveler_type":        EnumValue("explorer"),
		"dietary_restrictions": ListValue([]string{"vegetarian"}),
	}})
	s := completeSession(t, m)

	first, err := m.Complete(s)
	require.NoError(t, err)
	stamp := *s.CompletedAt

	second, err := m.Complete(s)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmp.AllowUnexported(identity.Identity{})); diff != "" {
		t.Errorf("second Complete returned a different profile (-first +second):\n%s", diff)
	}
	assert.Equal(t, stamp, *s.CompletedAt)
	assert.Equal(t, "explorer", first.Preferences["traveler_type"])
	assert.Equal(t, []string{"vegetarian"}, first.Constraints["dietary_restrictions"])
}

func TestMachine_Abandon(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})

	t.Run("FromInProgress", func(t *testing.T) {
		s, err := m.Start(identity.NewAnonymous(), nil)
		require.NoError(t, err)
		require.NoError(t, m.Abandon(s))
		assert.Equal(t, StatusAbandoned, s.Status)
		assert.NoError(t, m.Abandon(s))

		_, err = m.Complete(s)
		assert.ErrorIs(t, err, ErrSessionTerminal)
	})

	t.Run("CompletedCannotBeAbandoned", func(t *testing.T) {
		s := completeSession(t, m)
		_, err := m.Complete(s)
		require.NoError(t, err)
		assert.ErrorIs(t, m.Abandon(s), ErrSessionTerminal)
		assert.Equal(t, StatusCompleted, s.Status)
	})
}

func TestMachine_Progress(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{})
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)
	answerCurrent(t, m, s, goodAnswer)

	p := m.Progress(s)
	assert.Equal(t, 1, p.Current)
	assert.Equal(t, 13, p.Total)
	assert.Equal(t, "activity_level", p.CurrentQuestionID)
	assert.InDelta(t, 1.0/13.0, p.Completeness, 1e-9)
}

func TestSession_CloneIsDeep(t *testing.T) {
	m := newTestMachine(t, &scriptedChecker{values: map[string]ExtractedValue{
		"traveler_type": EnumValue("explorer"),
	}})
	s, err := m.Start(identity.NewAnonymous(), nil)
	require.NoError(t, err)
	answerCurrent(t, m, s, goodAnswer)

	c := s.Clone()
	c.Responses[0].Status = Insufficient
	c.CurrentIndex = 5

	assert.Equal(t, Sufficient, s.Responses[0].Status)
	assert.Equal(t, 1, s.CurrentIndex)
}
