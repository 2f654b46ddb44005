package driven

import (
	"context"
	"time"
)

// ClientEventKind classifies outbound realtime events.
type ClientEventKind string

// Outbound event kinds.
const (
	// ClientSessionUpdate carries session settings (instructions, voice,
	// turn-detection parameters) to the remote model.
	ClientSessionUpdate ClientEventKind = "session_update"

	// ClientAudioFrame carries one frame of captured PCM16 audio.
	ClientAudioFrame ClientEventKind = "audio_frame"

	// ClientUserText carries a typed user message.
	ClientUserText ClientEventKind = "user_text"

	// ClientContextInjection carries retrieved chunk texts, tagged as
	// background context rather than user speech.
	ClientContextInjection ClientEventKind = "context_injection"

	// ClientResponseRequest asks the remote model to produce the
	// response for the current turn (the turn-advance signal).
	ClientResponseRequest ClientEventKind = "response_request"
)

// SessionSettings are the negotiated parameters for a realtime session.
type SessionSettings struct {
	Model        string
	Instructions string
	Voice        string
	VADThreshold float64
	VADSilence   time.Duration
}

// ClientEvent is an outbound event on the realtime channel.
type ClientEvent struct {
	Kind ClientEventKind

	// Audio is the raw PCM16 frame for ClientAudioFrame.
	Audio []byte

	// Text is the message for ClientUserText.
	Text string

	// Context carries chunk texts for ClientContextInjection.
	Context []string

	// Settings is set for ClientSessionUpdate.
	Settings SessionSettings
}

// ServerEventKind classifies inbound realtime events.
type ServerEventKind string

// Inbound event kinds. Adapters map unknown wire types to ServerUnknown,
// which sessions drop rather than fail on.
const (
	// ServerAudioDelta carries one frame of assistant PCM16 audio.
	ServerAudioDelta ServerEventKind = "audio_delta"

	// ServerAudioDone marks the end of the assistant's audio output.
	ServerAudioDone ServerEventKind = "audio_done"

	// ServerTranscriptDelta carries an incremental piece of the
	// assistant's transcript.
	ServerTranscriptDelta ServerEventKind = "transcript_delta"

	// ServerTranscriptDone carries the assistant's final transcript
	// for the turn.
	ServerTranscriptDone ServerEventKind = "transcript_done"

	// ServerUserTranscript carries the finalized transcription of the
	// user's utterance (the turn boundary signal).
	ServerUserTranscript ServerEventKind = "user_transcript"

	// ServerError carries a remote error event.
	ServerError ServerEventKind = "error"

	// ServerUnknown is any unrecognised event type; ignored.
	ServerUnknown ServerEventKind = "unknown"
)

// ServerEvent is an inbound event from the realtime channel.
type ServerEvent struct {
	Kind ServerEventKind

	// Audio is the PCM16 frame for ServerAudioDelta.
	Audio []byte

	// Text carries transcript content.
	Text string

	// Err describes a ServerError event.
	Err error
}

// RealtimeChannel is the duplex event channel to the remote speech model.
// One channel serves one session; after termination a new channel must be
// constructed.
type RealtimeChannel interface {
	// Connect performs the handshake. It must be called before Send or
	// Receive and returns once the channel is ready for duplex traffic.
	Connect(ctx context.Context) error

	// Send transmits an outbound event.
	Send(ctx context.Context, ev ClientEvent) error

	// Receive returns the inbound event stream. The channel is closed
	// when the transport terminates; Err reports why.
	Receive() <-chan ServerEvent

	// Err returns the terminal transport error after Receive closes,
	// or nil for a clean shutdown.
	Err() error

	// Close shuts the channel down gracefully, bounded by ctx.
	Close(ctx context.Context) error
}
