// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Events
// =============================================================================

// LeadCreatedFromCall is published when an unknown caller gets a placeholder lead.
type LeadCreatedFromCall struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PhoneE164 string    `json:"phoneE164"`
	Source    string    `json:"source"`
}

func (e LeadCreatedFromCall) EventName() string { return "leads.created_from_call" }

// =============================================================================
// Conversation Events
// =============================================================================

// ConversationStarted is published when call_started creates a conversation.
type ConversationStarted struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	CallSID        string     `json:"callSid"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	Direction      string     `json:"direction"`
}

func (e ConversationStarted) EventName() string { return "conversations.started" }

// ConversationCompleted is published after call_ended has been applied.
type ConversationCompleted struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	CallSID        string     `json:"callSid"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	Transcript     string     `json:"transcript"`
	RecordingURL   string     `json:"recordingUrl,omitempty"`
	MessageCount   int        `json:"messageCount"`
}

func (e ConversationCompleted) EventName() string { return "conversations.completed" }

// ConversationAnalyzed is published after an extraction has been persisted.
type ConversationAnalyzed struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	CallSID        string     `json:"callSid"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	Qualified      bool       `json:"qualified"`
}

func (e ConversationAnalyzed) EventName() string { return "conversations.analyzed" }
