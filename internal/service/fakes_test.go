package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/compatibility"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. It reads
// the specifications it knows and ignores the rest.
type fakeStore struct {
	mu sync.Mutex

	sessions     map[string]*entity.ProfilingSession
	responses    map[string][]*entity.QuestionResponse
	profiles     map[string]*entity.UserProfile
	convs        map[uuid.UUID]*entity.GroupConversation
	participants []*entity.GroupParticipant
	messages     []*entity.GroupMessage
	brainstorms  map[uuid.UUID]*entity.BrainstormSession
	bmessages    []*entity.BrainstormMessage
	notes        []*entity.Notification

	// convCreateErrs fail the next conversation creates in order.
	convCreateErrs []error
	// appendErr fails every group message append while set.
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[string]*entity.ProfilingSession),
		responses:   make(map[string][]*entity.QuestionResponse),
		profiles:    make(map[string]*entity.UserProfile),
		convs:       make(map[uuid.UUID]*entity.GroupConversation),
		brainstorms: make(map[uuid.UUID]*entity.BrainstormSession),
	}
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{s: s}
}

func (s *fakeStore) setAppendErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

func (s *fakeStore) groupMessages() []*entity.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.GroupMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *fakeStore) profile(ownerKey string) *entity.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerKey]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *fakeStore) session(id string) *entity.ProfilingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Transactions are not simulated.
type fakeUoW struct{ s *fakeStore }

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Commit() error                   { return nil }
func (u *fakeUoW) Rollback() error                 { return nil }

func (u *fakeUoW) ProfilingSessionRepository() contract.ProfilingSessionRepository {
	return fakeSessions{u.s}
}
func (u *fakeUoW) QuestionResponseRepository() contract.QuestionResponseRepository {
	return fakeResponses{u.s}
}
func (u *fakeUoW) UserProfileRepository() contract.UserProfileRepository { return fakeProfiles{u.s} }
func (u *fakeUoW) GroupConversationRepository() contract.GroupConversationRepository {
	return fakeConvs{u.s}
}
func (u *fakeUoW) GroupParticipantRepository() contract.GroupParticipantRepository {
	return fakeParticipants{u.s}
}
func (u *fakeUoW) GroupMessageRepository() contract.GroupMessageRepository {
	return fakeMessages{u.s}
}
func (u *fakeUoW) BrainstormSessionRepository() contract.BrainstormSessionRepository {
	return fakeBrainstorms{u.s}
}
func (u *fakeUoW) BrainstormMessageRepository() contract.BrainstormMessageRepository {
	return fakeBrainstormMessages{u.s}
}
func (u *fakeUoW) NotificationRepository() contract.NotificationRepository {
	return fakeNotifications{u.s}
}

type filter struct {
	key            string
	ownerKey       string
	roomCode       string
	identityKey    string
	statuses       []string
	id             *uuid.UUID
	conversationID *uuid.UUID
	brainstormID   *uuid.UUID
	afterSequence  *int64
	activeOnly     bool
	unreadOnly     bool
	limit          int
	offset         int
}

func parseSpecs(specs []specification.Specification) filter {
	var f filter
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByKey:
			f.key = v.Key
		case specification.BySessionKey:
			f.key = v.SessionKey
		case specification.ByOwnerKey:
			f.ownerKey = v.OwnerKey
		case specification.ByStatus:
			f.statuses = v.Statuses
		case specification.ByRoomCode:
			f.roomCode = v.RoomCode
		case specification.ByIdentityKey:
			f.identityKey = v.IdentityKey
		case specification.ByID:
			id := v.ID
			f.id = &id
		case specification.ByConversationID:
			id := v.ConversationID
			f.conversationID = &id
		case specification.ByBrainstormSessionID:
			id := v.BrainstormSessionID
			f.brainstormID = &id
		case specification.AfterSequence:
			seq := v.Sequence
			f.afterSequence = &seq
		case specification.ActiveOnly:
			f.activeOnly = true
		case specification.UnreadOnly:
			f.unreadOnly = true
		case specification.Pagination:
			f.limit, f.offset = v.Limit, v.Offset
		}
	}
	return f
}

func (f filter) status(s string) bool {
	if len(f.statuses) == 0 {
		return true
	}
	for _, st := range f.statuses {
		if st == s {
			return true
		}
	}
	return false
}

func page[T any](items []T, f filter) []T {
	if f.offset >= len(items) {
		return []T{}
	}
	items = items[f.offset:]
	if f.limit > 0 && f.limit < len(items) {
		items = items[:f.limit]
	}
	return items
}

// Profiling

type fakeSessions struct{ s *fakeStore }

func (r fakeSessions) Create(ctx context.Context, session *entity.ProfilingSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.Id]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *session
	cp.Responses = nil
	r.s.sessions[session.Id] = &cp
	return nil
}

func (r fakeSessions) Update(ctx context.Context, session *entity.ProfilingSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.Id]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *session
	cp.Responses = nil
	r.s.sessions[session.Id] = &cp
	return nil
}

func (r fakeSessions) find(specs []specification.Specification) []*entity.ProfilingSession {
	f := parseSpecs(specs)
	var out []*entity.ProfilingSession
	for _, sess := range r.s.sessions {
		if f.key != "" && sess.Id != f.key {
			continue
		}
		if f.ownerKey != "" && sess.OwnerKey != f.ownerKey {
			continue
		}
		if !f.status(sess.Status) {
			continue
		}
		cp := *sess
		for _, resp := range r.s.responses[sess.Id] {
			rc := *resp
			cp.Responses = append(cp.Responses, &rc)
		}
		sort.Slice(cp.Responses, func(i, j int) bool { return cp.Responses[i].Position < cp.Responses[j].Position })
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r fakeSessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProfilingSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r fakeSessions) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProfilingSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(specs), nil
}

func (r fakeSessions) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.find(specs))), nil
}

type fakeResponses struct{ s *fakeStore }

func (r fakeResponses) Upsert(ctx context.Context, response *entity.QuestionResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *response
	rows := r.s.responses[response.SessionId]
	for i, row := range rows {
		if row.QuestionId == response.QuestionId {
			cp.Id = row.Id
			rows[i] = &cp
			return nil
		}
	}
	cp.Id = uuid.New()
	r.s.responses[response.SessionId] = append(rows, &cp)
	return nil
}

func (r fakeResponses) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.QuestionResponse
	for id, rows := range r.s.responses {
		if f.key != "" && id != f.key {
			continue
		}
		for _, row := range rows {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeProfiles struct{ s *fakeStore }

func (r fakeProfiles) Upsert(ctx context.Context, profile *entity.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *profile
	if old, ok := r.s.profiles[profile.OwnerKey]; ok {
		cp.Id = old.Id
		cp.CreatedAt = old.CreatedAt
	} else {
		cp.Id = uuid.New()
		cp.CreatedAt = time.Now()
	}
	cp.Summary = ""
	r.s.profiles[profile.OwnerKey] = &cp
	return nil
}

func (r fakeProfiles) UpdateSummary(ctx context.Context, ownerKey, summary string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[ownerKey]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Summary = summary
	return nil
}

func (r fakeProfiles) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f := parseSpecs(specs)
	p, ok := r.s.profiles[f.ownerKey]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r fakeProfiles) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.UserProfile
	for owner, p := range r.s.profiles {
		if f.ownerKey != "" && owner != f.ownerKey {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// Group

type fakeConvs struct{ s *fakeStore }

func (r fakeConvs) Create(ctx context.Context, conversation *entity.GroupConversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.convCreateErrs) > 0 {
		err := r.s.convCreateErrs[0]
		r.s.convCreateErrs = r.s.convCreateErrs[1:]
		return err
	}
	for _, c := range r.s.convs {
		if c.RoomCode == conversation.RoomCode {
			return gorm.ErrDuplicatedKey
		}
	}
	conversation.Id = uuid.New()
	cp := *conversation
	r.s.convs[cp.Id] = &cp
	return nil
}

func (r fakeConvs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.convs[id].Status = status
	return nil
}

func (r fakeConvs) UpdateCompatibility(ctx context.Context, id uuid.UUID, report *compatibility.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.convs[id].Compatibility = report
	return nil
}

func (r fakeConvs) AdvanceSequence(ctx context.Context, id uuid.UUID, sequence int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c := r.s.convs[id]; c.LastSequence < sequence {
		c.LastSequence = sequence
	}
	return nil
}

func (r fakeConvs) find(specs []specification.Specification) []*entity.GroupConversation {
	f := parseSpecs(specs)
	var out []*entity.GroupConversation
	for _, c := range r.s.convs {
		if f.roomCode != "" && c.RoomCode != f.roomCode {
			continue
		}
		if f.id != nil && c.Id != *f.id {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}

func (r fakeConvs) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupConversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r fakeConvs) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupConversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(specs), nil
}

type fakeParticipants struct{ s *fakeStore }

func (r fakeParticipants) Upsert(ctx context.Context, participant *entity.GroupParticipant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.participants {
		if p.ConversationId == participant.ConversationId && p.IdentityKey == participant.IdentityKey {
			participant.Id = p.Id
			cp := *participant
			r.s.participants[i] = &cp
			return nil
		}
	}
	participant.Id = uuid.New()
	cp := *participant
	r.s.participants = append(r.s.participants, &cp)
	return nil
}

func (r fakeParticipants) SetActive(ctx context.Context, conversationID uuid.UUID, identityKey string, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.ConversationId == conversationID && p.IdentityKey == identityKey {
			p.IsActive = active
			p.LastActiveAt = at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r fakeParticipants) UpdateScores(ctx context.Context, conversationID uuid.UUID, scores map[string]float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if score, ok := scores[p.IdentityKey]; ok && p.ConversationId == conversationID {
			sc := score
			p.IndividualScore = &sc
		}
	}
	return nil
}

func (r fakeParticipants) find(specs []specification.Specification) []*entity.GroupParticipant {
	f := parseSpecs(specs)
	var out []*entity.GroupParticipant
	for _, p := range r.s.participants {
		if f.conversationID != nil && p.ConversationId != *f.conversationID {
			continue
		}
		if f.identityKey != "" && p.IdentityKey != f.identityKey {
			continue
		}
		if f.activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (r fakeParticipants) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupParticipant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r fakeParticipants) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupParticipant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(specs), nil
}

func (r fakeParticipants) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.find(specs))), nil
}

type fakeMessages struct{ s *fakeStore }

func (r fakeMessages) Append(ctx context.Context, message *entity.GroupMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.appendErr != nil {
		return r.s.appendErr
	}
	for _, m := range r.s.messages {
		if m.ConversationId == message.ConversationId && m.Sequence == message.Sequence {
			return gorm.ErrDuplicatedKey
		}
	}
	message.Id = uuid.New()
	cp := *message
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r fakeMessages) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entity.GroupMessage, error) {
	all, _ := r.FindAll(ctx, specification.ByConversationID{ConversationID: conversationID})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r fakeMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.GroupMessage
	for _, m := range r.s.messages {
		if f.conversationID != nil && m.ConversationId != *f.conversationID {
			continue
		}
		if f.afterSequence != nil && m.Sequence <= *f.afterSequence {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// Brainstorm

type fakeBrainstorms struct{ s *fakeStore }

func (r fakeBrainstorms) Create(ctx context.Context, session *entity.BrainstormSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session.Id = uuid.New()
	cp := *session
	r.s.brainstorms[cp.Id] = &cp
	return nil
}

func (r fakeBrainstorms) Update(ctx context.Context, session *entity.BrainstormSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *session
	r.s.brainstorms[cp.Id] = &cp
	return nil
}

func (r fakeBrainstorms) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.brainstorms, id)
	return nil
}

func (r fakeBrainstorms) find(specs []specification.Specification) []*entity.BrainstormSession {
	f := parseSpecs(specs)
	var out []*entity.BrainstormSession
	for _, b := range r.s.brainstorms {
		if f.id != nil && b.Id != *f.id {
			continue
		}
		if f.ownerKey != "" && b.OwnerKey != f.ownerKey {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r fakeBrainstorms) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.BrainstormSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r fakeBrainstorms) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(specs), nil
}

func (r fakeBrainstorms) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.find(specs))), nil
}

type fakeBrainstormMessages struct{ s *fakeStore }

func (r fakeBrainstormMessages) Create(ctx context.Context, message *entity.BrainstormMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	message.Id = uuid.New()
	cp := *message
	r.s.bmessages = append(r.s.bmessages, &cp)
	return nil
}

func (r fakeBrainstormMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.BrainstormMessage
	for _, m := range r.s.bmessages {
		if f.brainstormID != nil && m.BrainstormSessionId != *f.brainstormID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// Notifications

type fakeNotifications struct{ s *fakeStore }

func (r fakeNotifications) Create(ctx context.Context, notification *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification.Id = uuid.New()
	cp := *notification
	r.s.notes = append(r.s.notes, &cp)
	return nil
}

func (r fakeNotifications) find(specs []specification.Specification) []*entity.Notification {
	f := parseSpecs(specs)
	var out []*entity.Notification
	for i := len(r.s.notes) - 1; i >= 0; i-- {
		n := r.s.notes[i]
		if f.ownerKey != "" && n.OwnerKey != f.ownerKey {
			continue
		}
		if f.unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return page(out, f)
}

func (r fakeNotifications) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(specs), nil
}

func (r fakeNotifications) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.find(specs))), nil
}

func (r fakeNotifications) MarkAsRead(ctx context.Context, ownerKey string, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notes {
		if n.Id == id && n.OwnerKey == ownerKey {
			now := time.Now()
			n.IsRead, n.ReadAt = true, &now
			return nil
		}
	}
	return contract.ErrNotificationNotFound
}

func (r fakeNotifications) MarkAllAsRead(ctx context.Context, ownerKey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, n := range r.s.notes {
		if n.OwnerKey == ownerKey && !n.IsRead {
			n.IsRead, n.ReadAt = true, &now
		}
	}
	return nil
}

// recordingBroadcaster keeps every frame, decoded back from JSON the way a
// client would see it.
type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []recordedFrame
	notify chan struct{}
}

type recordedFrame struct {
	Topic string
	Type  string
	Data  json.RawMessage
	Raw   json.RawMessage
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{notify: make(chan struct{}, 1)}
}

func (b *recordingBroadcaster) PublishJSON(topic string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var head struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(raw, &head)

	b.mu.Lock()
	b.frames = append(b.frames, recordedFrame{Topic: topic, Type: head.Type, Data: head.Data, Raw: raw})
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.frames))
	for i, f := range b.frames {
		out[i] = f.Type
	}
	return out
}

func (b *recordingBroadcaster) ofType(eventType string) []recordedFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedFrame
	for _, f := range b.frames {
		if f.Type == eventType {
			out = append(out, f)
		}
	}
	return out
}

func (b *recordingBroadcaster) count(eventType string) int {
	return len(b.ofType(eventType))
}

// jobRecorder stands in for the watermill publisher.
type jobRecorder struct {
	mu     sync.Mutex
	owners []string
	err    error
}

func (j *jobRecorder) SendProfileSummaryJob(ctx context.Context, ownerKey string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.owners = append(j.owners, ownerKey)
	return nil
}

func (j *jobRecorder) sent() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.owners...)
}
