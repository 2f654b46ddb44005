package domain

import "time"

// SessionState is the lifecycle state of a realtime session.
type SessionState string

// Session lifecycle states. Transitions:
//
//	Idle -> Connecting -> Active -> Closing -> Closed
//
// Errored is terminal and reachable from any non-terminal state.
// The only way out of Errored is constructing a fresh session.
const (
	StateIdle       SessionState = "idle"
	StateConnecting SessionState = "connecting"
	StateActive     SessionState = "active"
	StateClosing    SessionState = "closing"
	StateClosed     SessionState = "closed"
	StateErrored    SessionState = "errored"
)

// Terminal returns true if no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// String returns the string representation.
func (s SessionState) String() string {
	return string(s)
}

// Role identifies the speaker of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance within a realtime session. The core only consumes
// turns; conversation history is owned by the shell.
type Turn struct {
	// Seq is the monotonically increasing turn number within the session.
	Seq int64

	// Role is who spoke.
	Role Role

	// Transcript is the finalized utterance text.
	Transcript string

	// At is when the turn finalized.
	At time.Time
}

// SessionEventKind classifies session notifications.
type SessionEventKind string

// Session event kinds emitted to subscribers. The shell consumes these;
// the core never reaches into presentation state.
const (
	// EventStateChanged reports a session state transition.
	EventStateChanged SessionEventKind = "state_changed"

	// EventUserTranscript carries a finalized user utterance.
	EventUserTranscript SessionEventKind = "user_transcript"

	// EventTranscriptDelta carries an incremental piece of the
	// assistant's transcript for the current turn.
	EventTranscriptDelta SessionEventKind = "transcript_delta"

	// EventTurnComplete carries the assistant's finalized transcript.
	EventTurnComplete SessionEventKind = "turn_complete"

	// EventRetrievalInjected reports that retrieved context was sent
	// ahead of the response for a turn.
	EventRetrievalInjected SessionEventKind = "retrieval_injected"

	// EventSessionError carries a surfaced session error.
	EventSessionError SessionEventKind = "session_error"
)

// SessionEvent is a typed notification emitted by a realtime session.
type SessionEvent struct {
	// Kind classifies the event.
	Kind SessionEventKind

	// State is set for EventStateChanged.
	State SessionState

	// Turn is the turn number the event belongs to, where applicable.
	Turn int64

	// Text carries transcript content for transcript events.
	Text string

	// Chunks carries the injected context for EventRetrievalInjected.
	Chunks []RetrievedChunk

	// Err is set for EventSessionError.
	Err error

	// At is when the event was emitted.
	At time.Time
}
