package profiling

import (
	"context"
	"fmt"
	"time"

	"trawell-be/pkg/identity"
)

// Policy holds the completion thresholds. MinCompleteness is the ratio
// needed to complete; CriticalCap bounds completeness while any critical
// question lacks an accepted answer.
type Policy struct {
	MinCompleteness float64
	CriticalCap     float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinCompleteness: 0.8,
		CriticalCap:     0.79,
	}
}

// Outcome describes what one SubmitAnswer did.
type Outcome struct {
	QuestionID    string           `json:"question_id"`
	Status        ValidationStatus `json:"validation_status"`
	Feedback      string           `json:"feedback,omitempty"`
	Value         ExtractedValue   `json:"extracted_value"`
	FollowUp      string           `json:"follow_up,omitempty"`
	FollowUpCount int              `json:"follow_up_count"`
	Advanced      bool             `json:"advanced"`
	ForceAccepted bool             `json:"force_accepted,omitempty"`
	Completeness  float64          `json:"completeness"`
	CanComplete   bool             `json:"can_complete"`
}

type Machine struct {
	catalog *Catalog
	checker AnswerChecker
	policy  Policy
	now     func() time.Time
}

func NewMachine(catalog *Catalog, checker AnswerChecker, policy Policy) *Machine {
	return &Machine{
		catalog: catalog,
		checker: checker,
		policy:  policy,
		now:     time.Now,
	}
}

func (m *Machine) Catalog() *Catalog { return m.catalog }

func (m *Machine) Policy() Policy { return m.policy }

// Start opens a new session for owner. current is the owner's most recent
// session, if any; a non-terminal one blocks the start. Abandoned sessions
// never seed the new one.
func (m *Machine) Start(owner identity.Identity, current *Session) (*Session, error) {
	if owner.IsZero() {
		return nil, ErrNoOwner
	}
	if current != nil && !current.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActiveSession, current.ID)
	}
	now := m.now()
	return &Session{
		ID:        NewSessionID(),
		Owner:     owner,
		Status:    StatusInProgress,
		Responses: []*Response{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CurrentQuestion returns the question the session is waiting on.
func (m *Machine) CurrentQuestion(s *Session) (QuestionDefinition, bool) {
	if s.Status.Terminal() {
		return QuestionDefinition{}, false
	}
	return m.catalog.At(s.CurrentIndex)
}

// SubmitAnswer records an answer for the current question. The returned
// question is the one to present next (the same one on a follow-up), or nil
// once the catalog is exhausted.
func (m *Machine) SubmitAnswer(ctx context.Context, s *Session, questionID, answer string) (Outcome, *QuestionDefinition, error) {
	if s.Status.Terminal() {
		return Outcome{}, nil, fmt.Errorf("%w: %s is %s", ErrSessionTerminal, s.ID, s.Status)
	}
	q, ok := m.catalog.At(s.CurrentIndex)
	if !ok {
		return Outcome{}, nil, fmt.Errorf("%w: no question pending", ErrStaleQuestion)
	}
	if q.ID != questionID {
		return Outcome{}, nil, fmt.Errorf("%w: expected %q, got %q", ErrStaleQuestion, q.ID, questionID)
	}

	resp, exists := s.Response(q.ID)
	if !exists {
		resp = &Response{QuestionID: q.ID, Status: NotAnswered}
	}

	verdict := m.checker.Validate(ctx, q, answer, resp.FollowUpCount)

	now := m.now()
	resp.RawAnswer = answer
	resp.AnsweredAt = now

	out := Outcome{QuestionID: q.ID, Feedback: verdict.Feedback}

	switch {
	case verdict.Status.Accepted():
		resp.Status = verdict.Status
		resp.Value = verdict.Value
		if resp.Value.IsZero() {
			resp.Value = fallbackValue(q, answer)
		}
		s.CurrentIndex++
		out.Advanced = true

	case resp.FollowUpCount < q.MaxFollowUps:
		out.FollowUp = m.checker.FollowUp(ctx, q, answer, resp.FollowUpCount)
		resp.FollowUpCount++
		resp.Status = Insufficient
		if !verdict.Value.IsZero() {
			resp.Value = verdict.Value
		}

	default:
		// Follow-ups exhausted: take the best-effort value and move on.
		resp.Status = Sufficient
		if !verdict.Value.IsZero() {
			resp.Value = verdict.Value
		}
		if resp.Value.IsZero() {
			resp.Value = fallbackValue(q, answer)
		}
		s.CurrentIndex++
		out.Advanced = true
		out.ForceAccepted = true
	}

	if !exists {
		s.Responses = append(s.Responses, resp)
	}
	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
	}
	s.UpdatedAt = now
	if c := m.Completeness(s); c > s.Completeness {
		s.Completeness = c
	}

	out.Status = resp.Status
	out.Value = resp.Value
	out.FollowUpCount = resp.FollowUpCount
	out.Completeness = s.Completeness
	out.CanComplete = m.CanComplete(s)

	next, ok := m.catalog.At(s.CurrentIndex)
	if !ok {
		return out, nil, nil
	}
	return out, &next, nil
}

// Completeness is accepted answers over catalog size, capped while any
// critical question is not accepted.
func (m *Machine) Completeness(s *Session) float64 {
	accepted := 0
	for _, r := range s.Responses {
		if r.Status.Accepted() {
			accepted++
		}
	}
	ratio := float64(accepted) / float64(m.catalog.Len())
	if !m.criticalCovered(s) && ratio > m.policy.CriticalCap {
		return m.policy.CriticalCap
	}
	return ratio
}

func (m *Machine) criticalCovered(s *Session) bool {
	for _, id := range m.catalog.CriticalIDs() {
		r, ok := s.Response(id)
		if !ok || !r.Status.Accepted() {
			return false
		}
	}
	return true
}

// CanComplete reports whether Complete would succeed.
func (m *Machine) CanComplete(s *Session) bool {
	if s.Status == StatusCompleted {
		return true
	}
	if s.Status == StatusAbandoned {
		return false
	}
	return s.Completeness >= m.policy.MinCompleteness && m.criticalCovered(s)
}

// Progress reports the session position for transport events.
func (m *Machine) Progress(s *Session) Progress {
	p := Progress{
		Current:      s.CurrentIndex,
		Total:        m.catalog.Len(),
		Completeness: s.Completeness,
	}
	if q, ok := m.CurrentQuestion(s); ok {
		p.CurrentQuestionID = q.ID
	}
	return p
}

// Complete marks the session completed and builds the profile. Calling it
// again on a completed session returns the same profile.
func (m *Machine) Complete(s *Session) (*Profile, error) {
	switch s.Status {
	case StatusCompleted:
		return BuildProfile(m.catalog, s), nil
	case StatusAbandoned:
		return nil, fmt.Errorf("%w: %s is abandoned", ErrSessionTerminal, s.ID)
	}
	if !m.CanComplete(s) {
		return nil, fmt.Errorf("%w: completeness %.2f, need %.2f with every critical question answered",
			ErrIncompleteProfile, s.Completeness, m.policy.MinCompleteness)
	}

	now := m.now()
	s.Status = StatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	return BuildProfile(m.catalog, s), nil
}

// Abandon ends a non-terminal session for good. Abandoning twice is a no-op.
func (m *Machine) Abandon(s *Session) error {
	switch s.Status {
	case StatusAbandoned:
		return nil
	case StatusCompleted:
		return fmt.Errorf("%w: %s is completed", ErrSessionTerminal, s.ID)
	}
	s.Status = StatusAbandoned
	s.UpdatedAt = m.now()
	return nil
}
