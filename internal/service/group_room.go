package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/internal/tracer"
	"trawell-be/internal/websocket"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/moderation"
	"trawell-be/pkg/prompts"

	"go.opentelemetry.io/otel/attribute"
)

const roomModule = "GroupRoom"

// Events sent on a room topic.
const (
	EventUserMessageEchoed   = "user_message_echoed"
	EventAIThinking          = "ai_thinking"
	EventAIToken             = "ai_token"
	EventAIMessageComplete   = "ai_message_complete"
	EventCompatibilityUpdate = "compatibility_update"
	EventSystemNotice        = "system_notice"
	EventParticipantJoined   = "participant_joined"
	EventParticipantLeft     = "participant_left"
)

// Conversation statuses.
const (
	RoomStatusProfiling  = "profiling"
	RoomStatusActive     = "active"
	RoomStatusConverged  = "converged"
	RoomStatusConflicted = "conflicted"
)

// Metadata keys on assistant messages.
const (
	MetaTrigger            = "trigger"
	MetaCompatibilityLevel = "compatibility_level"
)

const (
	assistantName = "Trawell AI"
	// recentLimit bounds the in-memory tail. It must cover a moderation
	// window, which closes at every assistant reply.
	recentLimit  = 200
	storeTimeout = 10 * time.Second
)

var errRoomStopped = errors.New("room stopped")

// Broadcaster delivers frames to topic subscribers.
type Broadcaster interface {
	PublishJSON(topic string, v interface{})
}

// roomDeps is shared by every room of one service.
type roomDeps struct {
	uowFactory        unitofwork.RepositoryFactory
	broadcaster       Broadcaster
	llm               llm.LLMProvider
	prompts           *prompts.Set
	engine            *compatibility.Engine
	policy            *moderation.Policy
	mapper            *mapper.GroupMapper
	logger            logger.ILogger
	historyWindow     int
	inboxSize         int
	generationTimeout time.Duration
}

// room owns one conversation. Every state change runs on its loop goroutine,
// which gives appends, trigger checks and recomputes one total order. The
// loop exits once nobody is active and no reply is being generated.
type room struct {
	deps  *roomDeps
	topic string

	conv         *entity.GroupConversation
	participants map[string]*entity.GroupParticipant
	recent       []*entity.GroupMessage
	generating   bool

	inbox  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	onIdle func(*room)
}

func newRoom(parent context.Context, deps *roomDeps, wg *sync.WaitGroup, conv *entity.GroupConversation,
	participants []*entity.GroupParticipant, recent []*entity.GroupMessage, onIdle func(*room)) *room {
	ctx, cancel := context.WithCancel(parent)
	r := &room{
		deps:         deps,
		topic:        websocket.RoomTopic(conv.RoomCode),
		conv:         conv,
		participants: make(map[string]*entity.GroupParticipant, len(participants)),
		recent:       recent,
		inbox:        make(chan func(), deps.inboxSize),
		ctx:          ctx,
		cancel:       cancel,
		wg:           wg,
		onIdle:       onIdle,
	}
	for _, p := range participants {
		r.participants[p.IdentityKey] = p
	}
	return r
}

func (r *room) code() string { return r.conv.RoomCode }

func (r *room) run() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case op := <-r.inbox:
			if r.ctx.Err() != nil {
				return
			}
			op()
			if r.idle() {
				r.onIdle(r)
				r.cancel()
				return
			}
		}
	}
}

// do runs fn on the loop and waits for its result.
func (r *room) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	op := func() { errCh <- fn() }

	select {
	case r.inbox <- op:
	case <-r.ctx.Done():
		return errRoomStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errCh:
		return err
	case <-r.ctx.Done():
		select {
		case err := <-errCh:
			return err
		default:
			return errRoomStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by generation goroutines.
func (r *room) post(fn func()) {
	select {
	case r.inbox <- fn:
	case <-r.ctx.Done():
	}
}

func (r *room) broadcast(eventType string, data interface{}) {
	r.deps.broadcaster.PublishJSON(r.topic, dto.GroupEvent{Type: eventType, Room: r.code(), Data: data})
}

// storeContext is used for writes that must not depend on a requester.
func (r *room) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, storeTimeout)
}

// Loop-only methods below.

func (r *room) activeParticipants() []*entity.GroupParticipant {
	out := make([]*entity.GroupParticipant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].IdentityKey < out[j].IdentityKey
	})
	return out
}

func (r *room) activeKeys() []string {
	active := r.activeParticipants()
	keys := make([]string, len(active))
	for i, p := range active {
		keys[i] = p.IdentityKey
	}
	return keys
}

func (r *room) idle() bool {
	return !r.generating && len(r.activeParticipants()) == 0
}

func (r *room) member(who identity.Identity) (*entity.GroupParticipant, error) {
	p, ok := r.participants[who.Key()]
	if !ok || !p.IsActive {
		return nil, ErrNotParticipant
	}
	return p, nil
}

// append assigns the next sequence number and stores msg.
func (r *room) append(ctx context.Context, msg *entity.GroupMessage) error {
	seq := r.conv.LastSequence + 1
	msg.ConversationId = r.conv.Id
	msg.Sequence = seq
	msg.CreatedAt = time.Now()

	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.GroupMessageRepository().Append(ctx, msg); err != nil {
		return err
	}
	if err := uow.GroupConversationRepository().AdvanceSequence(ctx, r.conv.Id, seq); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	r.conv.LastSequence = seq
	r.recent = append(r.recent, msg)
	if len(r.recent) > recentLimit {
		r.recent = r.recent[len(r.recent)-recentLimit:]
	}
	return nil
}

func (r *room) systemNotice(ctx context.Context, body string, meta map[string]interface{}) {
	msg := &entity.GroupMessage{
		DisplayName: assistantName,
		Body:        body,
		Kind:        string(moderation.KindSystem),
		Metadata:    meta,
	}
	if err := r.append(ctx, msg); err != nil {
		r.deps.logger.Error(roomModule, "Failed to store system notice", map[string]interface{}{"room": r.code(), "error": err.Error()})
		return
	}
	r.broadcast(EventSystemNotice, toGroupMessageResponse(msg))
}

func (r *room) join(ctx context.Context, who identity.Identity, displayName string, snapshot *dto.ProfileSnapshot) (*entity.GroupParticipant, error) {
	now := time.Now()
	p, ok := r.participants[who.Key()]
	if !ok {
		p = &entity.GroupParticipant{
			ConversationId: r.conv.Id,
			IdentityKey:    who.Key(),
			JoinedAt:       now,
		}
	} else {
		cp := *p
		p = &cp
	}
	p.DisplayName = displayName
	p.Preferences = map[string]string{}
	p.Constraints = map[string][]string{}
	if snapshot != nil {
		for k, v := range snapshot.Preferences {
			p.Preferences[k] = v
		}
		for k, v := range snapshot.Constraints {
			p.Constraints[k] = append([]string(nil), v...)
		}
	}
	p.IsActive = true
	p.LastActiveAt = now

	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.GroupParticipantRepository().Upsert(ctx, p); err != nil {
		return nil, err
	}
	r.participants[p.IdentityKey] = p

	r.broadcast(EventParticipantJoined, toParticipantResponse(p))
	if err := r.recompute(ctx); err != nil {
		return nil, err
	}

	r.deps.logger.Info(roomModule, "Participant joined", map[string]interface{}{"room": r.code(), "identity": p.IdentityKey})
	return p, nil
}

func (r *room) leave(ctx context.Context, who identity.Identity) error {
	p, ok := r.participants[who.Key()]
	if !ok {
		return ErrNotParticipant
	}
	if !p.IsActive {
		return nil
	}

	now := time.Now()
	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.GroupParticipantRepository().SetActive(ctx, r.conv.Id, p.IdentityKey, false, now); err != nil {
		return err
	}
	p.IsActive = false
	p.LastActiveAt = now

	r.broadcast(EventParticipantLeft, toParticipantResponse(p))
	if err := r.recompute(ctx); err != nil {
		return err
	}

	r.deps.logger.Info(roomModule, "Participant left", map[string]interface{}{"room": r.code(), "identity": p.IdentityKey})
	return nil
}

// recompute refreshes the compatibility snapshot. Fewer than two active
// participants leave it empty.
func (r *room) recompute(ctx context.Context) error {
	active := r.activeParticipants()

	var report *compatibility.Report
	if len(active) >= 2 {
		ps := make([]compatibility.Participant, len(active))
		for i, p := range active {
			ps[i] = r.deps.mapper.ParticipantToCompatibility(p)
		}
		rep := r.deps.engine.Analyze(ps)
		report = &rep
	}
	status := r.nextStatus(report)

	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.GroupConversationRepository().UpdateCompatibility(ctx, r.conv.Id, report); err != nil {
		return err
	}
	if report != nil {
		if err := uow.GroupParticipantRepository().UpdateScores(ctx, r.conv.Id, report.ParticipantScores); err != nil {
			return err
		}
	}
	if status != r.conv.Status {
		if err := uow.GroupConversationRepository().UpdateStatus(ctx, r.conv.Id, status); err != nil {
			return err
		}
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	previous := r.conv.Compatibility
	r.conv.Compatibility = report
	r.conv.Status = status
	if report != nil {
		for id, score := range report.ParticipantScores {
			if p, ok := r.participants[id]; ok {
				s := score
				p.IndividualScore = &s
			}
		}
	}

	r.broadcast(EventCompatibilityUpdate, map[string]interface{}{
		"status":        status,
		"compatibility": report,
	})

	if report != nil && report.CompromiseNeeded && len(report.Conflicts) > 0 && compromiseChanged(previous, report) {
		body, err := r.deps.prompts.Render("compromise_notice", map[string]interface{}{
			"Aspects": strings.Join(report.ConflictDimensions(), ", "),
		})
		if err != nil {
			r.deps.logger.Warn(roomModule, "Failed to render compromise notice", map[string]interface{}{"error": err.Error()})
		} else {
			r.systemNotice(ctx, strings.TrimSpace(body), map[string]interface{}{"compromise_needed": true})
		}
	}
	return nil
}

// compromiseChanged is false when the previous snapshot already asked for
// compromise on the same dimensions.
func compromiseChanged(previous, current *compatibility.Report) bool {
	if previous == nil || !previous.CompromiseNeeded {
		return true
	}
	return strings.Join(previous.ConflictDimensions(), ",") != strings.Join(current.ConflictDimensions(), ",")
}

func (r *room) nextStatus(report *compatibility.Report) string {
	switch {
	case r.conv.Status == RoomStatusConverged:
		return RoomStatusConverged
	case report == nil:
		return RoomStatusProfiling
	case report.Level == compatibility.LevelConflicted:
		return RoomStatusConflicted
	default:
		return RoomStatusActive
	}
}

func (r *room) postMessage(ctx context.Context, who identity.Identity, body string, invokeAI bool) (*entity.GroupMessage, error) {
	p, err := r.member(who)
	if err != nil {
		return nil, err
	}

	tail := make([]moderation.Message, len(r.recent))
	for i, m := range r.recent {
		tail[i] = r.deps.mapper.MessageToModeration(m)
	}

	key := p.IdentityKey
	msg := &entity.GroupMessage{
		AuthorKey:   &key,
		DisplayName: p.DisplayName,
		Body:        body,
		Kind:        string(moderation.KindUser),
	}
	if invokeAI {
		msg.Metadata = map[string]interface{}{moderation.MetaAIInvoked: true}
	}
	if err := r.append(ctx, msg); err != nil {
		return nil, err
	}
	r.broadcast(EventUserMessageEchoed, toGroupMessageResponse(msg))

	now := time.Now()
	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.GroupParticipantRepository().SetActive(ctx, r.conv.Id, key, true, now); err != nil {
		r.deps.logger.Warn(roomModule, "Failed to touch participant", map[string]interface{}{"room": r.code(), "error": err.Error()})
	} else {
		p.LastActiveAt = now
	}

	_, span := tracer.Tracer().Start(ctx, "moderation.ShouldRespond")
	decision := r.deps.policy.ShouldRespond(tail, r.activeKeys(), r.deps.mapper.MessageToModeration(msg))
	span.SetAttributes(
		attribute.String("room.code", r.code()),
		attribute.Bool("moderation.respond", decision.Respond),
		attribute.String("moderation.trigger", string(decision.Trigger)),
	)
	span.End()

	if decision.Respond {
		r.startGeneration(decision.Trigger, body)
	}
	return msg, nil
}

// startGeneration renders the prompt on the loop and streams the reply on a
// goroutine detached from any requester.
func (r *room) startGeneration(trigger moderation.Trigger, lastMessage string) {
	if r.generating {
		r.deps.logger.Debug(roomModule, "Trigger ignored, generation running", map[string]interface{}{"room": r.code(), "trigger": string(trigger)})
		return
	}

	ps := make([]compatibility.Participant, 0, len(r.participants))
	names := make(map[string]string, len(r.participants))
	for _, p := range r.activeParticipants() {
		ps = append(ps, r.deps.mapper.ParticipantToCompatibility(p))
		names[p.IdentityKey] = p.DisplayName
	}
	report := r.deps.engine.Analyze(ps)

	key, kind := "group_suggestion_high", moderation.KindAISuggestion
	switch {
	case trigger == moderation.TriggerImpasse:
		key, kind = "group_moderator", moderation.KindAIAnalysis
	case report.Level == compatibility.LevelLow || report.Level == compatibility.LevelConflicted:
		key = "group_suggestion_low"
	}
	meta := map[string]interface{}{
		MetaTrigger:            string(trigger),
		MetaCompatibilityLevel: string(report.Level),
	}

	r.generating = true
	r.broadcast(EventAIThinking, map[string]interface{}{"trigger": string(trigger)})

	prompt, err := r.deps.prompts.Render(key, map[string]interface{}{
		"ParticipantCount": report.ParticipantCount,
		"Level":            string(report.Level),
		"CommonGround":     orNone(strings.Join(report.CommonGround, ", ")),
		"Conflicts":        orNone(describeConflicts(report.Conflicts, names)),
		"ConflictCount":    len(report.Conflicts),
		"CompromiseNeeded": report.CompromiseNeeded,
		"RecentMessages":   orNone(r.transcript()),
	})
	if err != nil {
		r.finishGeneration(kind, "", meta, fmt.Errorf("render %s: %w", key, err))
		return
	}

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: lastMessage},
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		text, err := r.generate(trigger, history)
		r.post(func() { r.finishGeneration(kind, text, meta, err) })
	}()
}

// generate streams one reply, fanning tokens out as they arrive.
func (r *room) generate(trigger moderation.Trigger, history []llm.Message) (string, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.deps.generationTimeout)
	defer cancel()
	ctx, span := tracer.Tracer().Start(ctx, "group.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("room.code", r.code()), attribute.String("moderation.trigger", string(trigger)))

	stream, err := r.deps.llm.ChatStream(ctx, history)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for chunk := range stream {
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			r.broadcast(EventAIToken, map[string]interface{}{"token": chunk.Text})
		}
		if chunk.Done {
			err = chunk.Err
			break
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	result := strings.TrimSpace(text.String())
	if err == nil && result == "" {
		err = errors.New("empty reply")
	}
	return result, err
}

func (r *room) finishGeneration(kind moderation.MessageKind, text string, meta map[string]interface{}, genErr error) {
	r.generating = false
	ctx, cancel := r.storeContext()
	defer cancel()

	if genErr != nil {
		r.deps.logger.Warn(roomModule, "Assistant generation failed", map[string]interface{}{"room": r.code(), "error": genErr.Error()})
		notice := map[string]interface{}{MetaTrigger: meta[MetaTrigger], "ai_failed": true}
		r.systemNotice(ctx, r.deps.prompts.Text("ai_failure_notice"), notice)
	} else {
		msg := &entity.GroupMessage{
			DisplayName: assistantName,
			Body:        text,
			Kind:        string(kind),
			Metadata:    meta,
		}
		if err := r.append(ctx, msg); err != nil {
			r.deps.logger.Error(roomModule, "Failed to store assistant message", map[string]interface{}{"room": r.code(), "error": err.Error()})
			r.broadcast(EventSystemNotice, toGroupMessageResponse(&entity.GroupMessage{
				DisplayName: assistantName,
				Body:        r.deps.prompts.Text("ai_failure_notice"),
				Kind:        string(moderation.KindSystem),
				CreatedAt:   time.Now(),
			}))
		} else {
			r.broadcast(EventAIMessageComplete, toGroupMessageResponse(msg))
		}
	}
}

func (r *room) converge(ctx context.Context, who identity.Identity) error {
	if _, err := r.member(who); err != nil {
		return err
	}
	if r.conv.Status == RoomStatusConverged {
		return nil
	}
	uow := r.deps.uowFactory.NewUnitOfWork(ctx)
	if err := uow.GroupConversationRepository().UpdateStatus(ctx, r.conv.Id, RoomStatusConverged); err != nil {
		return err
	}
	r.conv.Status = RoomStatusConverged
	r.broadcast(EventCompatibilityUpdate, map[string]interface{}{
		"status":        r.conv.Status,
		"compatibility": r.conv.Compatibility,
	})
	return nil
}

func (r *room) snapshot() *dto.RoomResponse {
	res := &dto.RoomResponse{
		RoomCode:      r.code(),
		Status:        r.conv.Status,
		Compatibility: r.conv.Compatibility,
		Participants:  make([]*dto.ParticipantResponse, 0, len(r.participants)),
		Messages:      make([]*dto.GroupMessageResponse, 0, len(r.recent)),
		Generating:    r.generating,
		CreatedAt:     r.conv.CreatedAt,
	}
	all := make([]*entity.GroupParticipant, 0, len(r.participants))
	for _, p := range r.participants {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].JoinedAt.Before(all[j].JoinedAt) })
	for _, p := range all {
		res.Participants = append(res.Participants, toParticipantResponse(p))
	}

	start := 0
	if len(r.recent) > r.deps.historyWindow {
		start = len(r.recent) - r.deps.historyWindow
	}
	for _, m := range r.recent[start:] {
		res.Messages = append(res.Messages, toGroupMessageResponse(m))
	}
	return res
}

// transcript renders the last historyWindow conversational messages.
func (r *room) transcript() string {
	var lines []string
	for _, m := range r.recent {
		if m.Kind == string(moderation.KindSystem) || m.Kind == string(moderation.KindAIThinking) {
			continue
		}
		lines = append(lines, m.DisplayName+": "+m.Body)
	}
	if len(lines) > r.deps.historyWindow {
		lines = lines[len(lines)-r.deps.historyWindow:]
	}
	return strings.Join(lines, "\n")
}

func describeConflicts(conflicts []compatibility.Conflict, names map[string]string) string {
	lines := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		values := make([]string, 0, len(c.Values))
		for v, ids := range c.Values {
			who := make([]string, len(ids))
			for i, id := range ids {
				who[i] = names[id]
			}
			if v == "" {
				v = "unspecified"
			}
			values = append(values, fmt.Sprintf("%s (%s)", v, strings.Join(who, ", ")))
		}
		sort.Strings(values)
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Dimension, strings.Join(values, " vs ")))
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none yet"
	}
	return s
}

func toParticipantResponse(p *entity.GroupParticipant) *dto.ParticipantResponse {
	return &dto.ParticipantResponse{
		Identity:        p.IdentityKey,
		DisplayName:     p.DisplayName,
		Preferences:     p.Preferences,
		IndividualScore: p.IndividualScore,
		IsActive:        p.IsActive,
		JoinedAt:        p.JoinedAt,
		LastActiveAt:    p.LastActiveAt,
	}
}

func toGroupMessageResponse(m *entity.GroupMessage) *dto.GroupMessageResponse {
	return &dto.GroupMessageResponse{
		Sequence:    m.Sequence,
		Author:      m.AuthorKey,
		DisplayName: m.DisplayName,
		Body:        m.Body,
		Kind:        m.Kind,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}
}
