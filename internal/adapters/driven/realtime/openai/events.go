package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// transcriptionModel transcribes the user's speech server-side so the
// channel can surface user transcripts as turn boundaries.
const transcriptionModel = "gpt-4o-mini-transcribe"

// errorCodeActiveResponse is returned by the server when a response is
// requested while one is already in flight. Harmless; dropped.
const errorCodeActiveResponse = "conversation_already_has_active_response"

// Wire formats for the OpenAI realtime API.

type wireTurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

type wireTranscription struct {
	Model string `json:"model"`
}

type wireSession struct {
	Model                   string             `json:"model,omitempty"`
	Instructions            string             `json:"instructions"`
	Modalities              []string           `json:"modalities"`
	Voice                   string             `json:"voice,omitempty"`
	InputAudioFormat        string             `json:"input_audio_format"`
	OutputAudioFormat       string             `json:"output_audio_format"`
	TurnDetection           *wireTurnDetection `json:"turn_detection,omitempty"`
	InputAudioTranscription *wireTranscription `json:"input_audio_transcription,omitempty"`
}

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

type wireResponse struct {
	Modalities []string `json:"modalities"`
}

type wireClientEvent struct {
	Type     string        `json:"type"`
	Audio    string        `json:"audio,omitempty"`
	Session  *wireSession  `json:"session,omitempty"`
	Item     *wireItem     `json:"item,omitempty"`
	Response *wireResponse `json:"response,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireServerEvent struct {
	Type       string     `json:"type"`
	Delta      string     `json:"delta"`
	Text       string     `json:"text"`
	Transcript string     `json:"transcript"`
	Error      *wireError `json:"error"`
}

// encodeClientEvent translates a port-level client event into its wire
// representation. Each event maps to exactly one wire message, except
// ClientUserText which needs a follow-up response request from the
// caller to advance the turn.
func encodeClientEvent(ev driven.ClientEvent) ([]byte, error) {
	var wire wireClientEvent

	switch ev.Kind {
	case driven.ClientSessionUpdate:
		wire.Type = "session.update"
		wire.Session = &wireSession{
			Model:             ev.Settings.Model,
			Instructions:      ev.Settings.Instructions,
			Modalities:        []string{"text", "audio"},
			Voice:             ev.Settings.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			TurnDetection: &wireTurnDetection{
				Type:              "server_vad",
				Threshold:         ev.Settings.VADThreshold,
				SilenceDurationMs: int(ev.Settings.VADSilence.Milliseconds()),
				// Responses are requested explicitly after retrieval,
				// never auto-created on speech end.
				CreateResponse: false,
			},
			InputAudioTranscription: &wireTranscription{
				Model: transcriptionModel,
			},
		}

	case driven.ClientAudioFrame:
		wire.Type = "input_audio_buffer.append"
		wire.Audio = base64.StdEncoding.EncodeToString(ev.Audio)

	case driven.ClientUserText:
		wire.Type = "conversation.item.create"
		wire.Item = &wireItem{
			Type: "message",
			Role: "user",
			Content: []wireContent{
				{Type: "input_text", Text: ev.Text},
			},
		}

	case driven.ClientContextInjection:
		wire.Type = "conversation.item.create"
		wire.Item = &wireItem{
			Type: "message",
			Role: "system",
			Content: []wireContent{
				{Type: "input_text", Text: contextMessage(ev.Context)},
			},
		}

	case driven.ClientResponseRequest:
		wire.Type = "response.create"
		wire.Response = &wireResponse{
			Modalities: []string{"audio", "text"},
		}

	default:
		return nil, fmt.Errorf("unsupported client event kind %q", ev.Kind)
	}

	return json.Marshal(wire)
}

// contextMessage renders retrieved chunk texts as a single background
// message the model treats as reference material, not user speech.
func contextMessage(chunks []string) string {
	var b strings.Builder
	b.WriteString("Background knowledge relevant to the user's last message. ")
	b.WriteString("Use it to answer; do not mention this message.\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, c)
	}
	return b.String()
}

// decodeServerEvent translates one wire message into a port-level server
// event. Unrecognised types decode to ServerUnknown. The second return
// is false for messages that should be dropped entirely.
func decodeServerEvent(data []byte) (driven.ServerEvent, bool) {
	var wire wireServerEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return driven.ServerEvent{
			Kind: driven.ServerError,
			Err:  fmt.Errorf("malformed server event: %w", err),
		}, true
	}

	switch wire.Type {
	case "response.audio.delta":
		raw, err := base64.StdEncoding.DecodeString(wire.Delta)
		if err != nil {
			return driven.ServerEvent{
				Kind: driven.ServerError,
				Err:  fmt.Errorf("malformed audio delta: %w", err),
			}, true
		}
		return driven.ServerEvent{Kind: driven.ServerAudioDelta, Audio: raw}, true

	case "response.audio.done":
		return driven.ServerEvent{Kind: driven.ServerAudioDone}, true

	case "response.audio_transcript.delta":
		return driven.ServerEvent{Kind: driven.ServerTranscriptDelta, Text: wire.Delta}, true

	case "response.audio_transcript.done":
		return driven.ServerEvent{Kind: driven.ServerTranscriptDone, Text: wire.Transcript}, true

	case "conversation.item.input_audio_transcription.completed":
		return driven.ServerEvent{Kind: driven.ServerUserTranscript, Text: wire.Transcript}, true

	case "error":
		if wire.Error != nil && wire.Error.Code == errorCodeActiveResponse {
			// A response is already streaming; nothing to do.
			return driven.ServerEvent{}, false
		}
		msg := "unknown server error"
		if wire.Error != nil {
			msg = wire.Error.Message
		}
		return driven.ServerEvent{
			Kind: driven.ServerError,
			Err:  fmt.Errorf("realtime server: %s", msg),
		}, true

	default:
		return driven.ServerEvent{Kind: driven.ServerUnknown}, true
	}
}
