// Package moderation decides when the assistant should speak in a group
// brainstorm.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

type MessageKind string

const (
	KindUser         MessageKind = "user"
	KindAIAnalysis   MessageKind = "ai_analysis"
	KindAISuggestion MessageKind = "ai_suggestion"
	KindSystem       MessageKind = "system"
	KindAIThinking   MessageKind = "ai_thinking"
)

// IsAIResponse reports whether the kind closes a moderation window.
func (k MessageKind) IsAIResponse() bool {
	return k == KindAIAnalysis || k == KindAISuggestion
}

// MetaAIInvoked is the metadata flag a client sets to call the assistant in.
const MetaAIInvoked = "ai_invoked"

type Message struct {
	AuthorID string
	Kind     MessageKind
	Body     string
	Metadata map[string]interface{}
}

type Trigger string

const (
	TriggerNone          Trigger = ""
	TriggerManual        Trigger = "manual"
	TriggerDirectAddress Trigger = "direct_address"
	TriggerFullRound     Trigger = "full_round"
	TriggerImpasse       Trigger = "impasse"
)

type Decision struct {
	Respond bool
	Trigger Trigger
	Reason  string
}

func DefaultAddressPhrases() []string {
	return []string{
		"ai",
		"suggest",
		"suggestions",
		"what do you think",
		"any ideas",
		"recommend",
		"recommendations",
		"help us",
		"what about",
	}
}

type Policy struct {
	AddressPhrases   []string
	ImpasseThreshold int
	// MinRoundSize is the fewest active participants that make a round.
	MinRoundSize int

	address *regexp.Regexp
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultAddressPhrases(), 6, 2)
}

func NewPolicy(phrases []string, impasseThreshold, minRoundSize int) *Policy {
	if impasseThreshold <= 0 {
		impasseThreshold = 6
	}
	if minRoundSize <= 0 {
		minRoundSize = 2
	}
	p := &Policy{
		AddressPhrases:   append([]string(nil), phrases...),
		ImpasseThreshold: impasseThreshold,
		MinRoundSize:     minRoundSize,
	}
	p.address = compileAddress(phrases)
	return p
}

// compileAddress builds one case-insensitive alternation with word
// boundaries so "ai" does not match inside "said".
func compileAddress(phrases []string) *regexp.Regexp {
	var alts []string
	for _, ph := range phrases {
		ph = strings.TrimSpace(ph)
		if ph == "" {
			continue
		}
		words := strings.Fields(ph)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Addressed reports whether text calls on the assistant.
func (p *Policy) Addressed(text string) bool {
	return p.address != nil && p.address.MatchString(text)
}

// Window returns the messages after the assistant's last response.
func Window(tail []Message) []Message {
	for i := len(tail) - 1; i >= 0; i-- {
		if tail[i].Kind.IsAIResponse() {
			return tail[i+1:]
		}
	}
	return tail
}

// ShouldRespond evaluates the triggers for newMsg, which is not yet part of
// tail. At most one trigger is reported; manual beats direct address, which
// beats a full round, which beats an impasse.
func (p *Policy) ShouldRespond(tail []Message, active []string, newMsg Message) Decision {
	if newMsg.Kind != KindUser {
		return Decision{}
	}

	if invoked, _ := newMsg.Metadata[MetaAIInvoked].(bool); invoked {
		return Decision{Respond: true, Trigger: TriggerManual, Reason: "assistant explicitly invoked"}
	}

	if p.Addressed(newMsg.Body) {
		return Decision{Respond: true, Trigger: TriggerDirectAddress, Reason: "message addressed to the assistant"}
	}

	window := Window(tail)

	if p.completesRound(window, active, newMsg) {
		return Decision{Respond: true, Trigger: TriggerFullRound, Reason: "every active participant has spoken"}
	}

	userCount := 1
	for _, m := range window {
		if m.Kind == KindUser {
			userCount++
		}
	}
	if userCount >= p.ImpasseThreshold {
		return Decision{
			Respond: true,
			Trigger: TriggerImpasse,
			Reason:  fmt.Sprintf("%d messages without the assistant", userCount),
		}
	}

	return Decision{}
}

// completesRound is true only for the message that makes the round whole,
// so a round fires once no matter how many messages it contains.
func (p *Policy) completesRound(window []Message, active []string, newMsg Message) bool {
	if len(active) < p.MinRoundSize {
		return false
	}
	spoke := make(map[string]bool, len(active))
	for _, m := range window {
		if m.Kind == KindUser && m.AuthorID != "" {
			spoke[m.AuthorID] = true
		}
	}

	before := true
	for _, id := range active {
		if !spoke[id] {
			before = false
			break
		}
	}
	if before {
		return false
	}

	spoke[newMsg.AuthorID] = true
	for _, id := range active {
		if !spoke[id] {
			return false
		}
	}
	return true
}
