package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
	"github.com/darkcube-team/cuby/internal/logger"
)

// Ensure RealtimeSession implements the interface.
var _ driving.SessionController = (*RealtimeSession)(nil)

// eventBuffer absorbs bursts of transcript deltas; events beyond it are
// dropped rather than allowed to stall the receive loop.
const eventBuffer = 64

// stopDrainTimeout bounds how long Stop waits for the channel to wind
// down when the caller's context carries no deadline.
const stopDrainTimeout = 5 * time.Second

// RealtimeSession drives one duplex session against the remote speech
// model. Each user turn runs retrieve-then-respond: the finalized user
// transcript is matched against the knowledge store within the
// retrieval budget, any hits are injected as background context, and
// only then is the response requested. A session is single-use.
type RealtimeSession struct {
	channel   driven.RealtimeChannel
	knowledge driving.KnowledgeService
	source    driven.AudioSource
	sink      driven.AudioSink
	cfg       domain.Config

	stateMu sync.Mutex
	state   domain.SessionState

	// emitMu orders emissions against the closing of events, so a late
	// turn goroutine can never send on a closed channel.
	emitMu       sync.Mutex
	events       chan domain.SessionEvent
	eventsClosed bool

	// turnSeq is the current turn number; in-flight retrievals compare
	// against it and abandon themselves once a newer turn exists.
	turnSeq atomic.Int64

	transcript strings.Builder

	stopping atomic.Bool
	done     chan struct{}
}

// NewRealtimeSession creates a session controller. knowledge, source,
// and sink are optional: without knowledge every turn proceeds without
// injection, without source no audio is captured, without sink
// assistant audio is discarded.
func NewRealtimeSession(
	channel driven.RealtimeChannel,
	knowledge driving.KnowledgeService,
	source driven.AudioSource,
	sink driven.AudioSink,
	cfg domain.Config,
) (*RealtimeSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RealtimeSession{
		channel:   channel,
		knowledge: knowledge,
		source:    source,
		sink:      sink,
		cfg:       cfg,
		state:     domain.StateIdle,
		events:    make(chan domain.SessionEvent, eventBuffer),
		done:      make(chan struct{}),
	}, nil
}

// Start opens the channel, negotiates the session parameters, and
// begins duplex streaming. It returns once the session is Active or
// has failed.
func (s *RealtimeSession) Start(ctx context.Context) error {
	if err := s.transition(domain.StateIdle, domain.StateConnecting); err != nil {
		return err
	}

	logger.Section("Realtime Session")
	logger.Debug("Connecting (model=%s voice=%s)", s.cfg.RealtimeModel, s.cfg.Voice)

	if err := s.channel.Connect(ctx); err != nil {
		s.fail(fmt.Errorf("connect: %w", err))
		return fmt.Errorf("connect: %w", err)
	}

	update := driven.ClientEvent{
		Kind: driven.ClientSessionUpdate,
		Settings: driven.SessionSettings{
			Model:        s.cfg.RealtimeModel,
			Instructions: s.cfg.Instructions,
			Voice:        s.cfg.Voice,
			VADThreshold: s.cfg.VADThreshold,
			VADSilence:   s.cfg.VADSilence,
		},
	}
	if err := s.channel.Send(ctx, update); err != nil {
		s.fail(fmt.Errorf("negotiate session: %w", err))
		return fmt.Errorf("negotiate session: %w", err)
	}

	if err := s.transition(domain.StateConnecting, domain.StateActive); err != nil {
		// Stop raced the handshake; settle cleanly
		s.channel.Close(ctx) //nolint:errcheck
		s.finish(nil)
		return err
	}
	logger.Info("Session active")

	if s.source != nil {
		go s.sendLoop()
	}
	go s.receiveLoop()

	return nil
}

// Stop closes the session gracefully: capture stops, a close is sent on
// the channel, and remaining inbound events are drained until the
// transport confirms shutdown or the deadline passes. Stop on a session
// that is already Closed or Errored is a no-op.
func (s *RealtimeSession) Stop(ctx context.Context) error {
	s.stateMu.Lock()
	switch s.state {
	case domain.StateClosed, domain.StateErrored:
		s.stateMu.Unlock()
		return nil
	case domain.StateIdle:
		// Never started; nothing to drain
		s.state = domain.StateClosed
		s.stateMu.Unlock()
		s.emit(domain.SessionEvent{Kind: domain.EventStateChanged, State: domain.StateClosed})
		s.closeEvents()
		close(s.done)
		return nil
	}
	s.state = domain.StateClosing
	s.stateMu.Unlock()

	s.stopping.Store(true)
	s.emit(domain.SessionEvent{Kind: domain.EventStateChanged, State: domain.StateClosing})
	logger.Debug("Session closing")

	if s.source != nil {
		s.source.Close() //nolint:errcheck
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stopDrainTimeout)
		defer cancel()
	}

	if err := s.channel.Close(ctx); err != nil {
		logger.Warn("Channel close: %v", err)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		logger.Warn("Session drain timed out")
	}
	return nil
}

// SubmitText feeds a typed user message through the same
// retrieve-then-respond path as a spoken utterance. It returns once the
// response has been requested.
func (s *RealtimeSession) SubmitText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.State() != domain.StateActive {
		return domain.ErrSessionClosed
	}

	seq := s.turnSeq.Add(1)
	s.emit(domain.SessionEvent{Kind: domain.EventUserTranscript, Turn: seq, Text: text})

	if err := s.channel.Send(ctx, driven.ClientEvent{
		Kind: driven.ClientUserText,
		Text: text,
	}); err != nil {
		return fmt.Errorf("send text: %w", err)
	}

	s.runTurn(seq, text)
	return nil
}

// Events returns the session notification stream. Closed on termination.
func (s *RealtimeSession) Events() <-chan domain.SessionEvent {
	return s.events
}

// State returns the current session state.
func (s *RealtimeSession) State() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// sendLoop streams captured audio frames into the channel until the
// source or the session ends.
func (s *RealtimeSession) sendLoop() {
	for frame := range s.source.Frames() {
		if s.State() != domain.StateActive {
			return
		}
		err := s.channel.Send(context.Background(), driven.ClientEvent{
			Kind:  driven.ClientAudioFrame,
			Audio: frame,
		})
		if err != nil {
			if !s.stopping.Load() {
				logger.Warn("Audio send failed: %v", err)
			}
			return
		}
	}
}

// receiveLoop drains the channel until the transport terminates, then
// settles the final state.
func (s *RealtimeSession) receiveLoop() {
	for ev := range s.channel.Receive() {
		s.handleServerEvent(ev)
	}
	s.finish(s.channel.Err())
}

func (s *RealtimeSession) handleServerEvent(ev driven.ServerEvent) {
	switch ev.Kind {
	case driven.ServerAudioDelta:
		if s.sink != nil {
			if err := s.sink.Write(ev.Audio); err != nil && !s.stopping.Load() {
				logger.Warn("Audio playback failed: %v", err)
			}
		}

	case driven.ServerAudioDone:
		// Playback drained by the sink; nothing to settle here

	case driven.ServerTranscriptDelta:
		s.transcript.WriteString(ev.Text)
		s.emit(domain.SessionEvent{
			Kind: domain.EventTranscriptDelta,
			Turn: s.turnSeq.Load(),
			Text: ev.Text,
		})

	case driven.ServerTranscriptDone:
		text := ev.Text
		if text == "" {
			text = s.transcript.String()
		}
		s.transcript.Reset()
		s.emit(domain.SessionEvent{
			Kind: domain.EventTurnComplete,
			Turn: s.turnSeq.Load(),
			Text: text,
		})

	case driven.ServerUserTranscript:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return
		}
		seq := s.turnSeq.Add(1)
		s.emit(domain.SessionEvent{Kind: domain.EventUserTranscript, Turn: seq, Text: text})
		// The turn pipeline must not stall the receive loop
		go s.runTurn(seq, text)

	case driven.ServerError:
		logger.Warn("Server error: %v", ev.Err)
		s.emit(domain.SessionEvent{Kind: domain.EventSessionError, Err: ev.Err})

	case driven.ServerUnknown:
		// Dropped
	}
}

// runTurn executes the retrieve-then-respond pipeline for one turn.
// Retrieval is bounded by the budget; results arriving after it are
// discarded, as is the whole turn once a newer one exists. Context is
// always injected before the response is requested, never after.
func (s *RealtimeSession) runTurn(seq int64, text string) {
	chunks := s.retrieve(seq, text)

	if s.turnSeq.Load() != seq {
		logger.Debug("Turn %d superseded, dropping", seq)
		return
	}
	if s.State() != domain.StateActive {
		return
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Chunk.Content
		}
		err := s.channel.Send(context.Background(), driven.ClientEvent{
			Kind:    driven.ClientContextInjection,
			Context: texts,
		})
		if err != nil {
			logger.Warn("Context injection failed: %v", err)
		} else {
			s.emit(domain.SessionEvent{Kind: domain.EventRetrievalInjected, Turn: seq, Chunks: chunks})
			logger.Debug("Turn %d: injected %d chunks", seq, len(chunks))
		}
	}

	err := s.channel.Send(context.Background(), driven.ClientEvent{Kind: driven.ClientResponseRequest})
	if err != nil && !s.stopping.Load() {
		logger.Warn("Response request failed: %v", err)
	}
}

// retrieve queries the knowledge service within the retrieval budget.
// An exhausted budget or a failed query yields no chunks; the turn
// proceeds without context either way.
func (s *RealtimeSession) retrieve(seq int64, text string) []domain.RetrievedChunk {
	if s.knowledge == nil || !s.knowledge.RetrievalEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RetrievalBudget)
	defer cancel()

	type result struct {
		chunks []domain.RetrievedChunk
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		chunks, err := s.knowledge.Query(ctx, text, s.cfg.TopK)
		ch <- result{chunks: chunks, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			logger.Warn("Turn %d: retrieval failed: %v", seq, r.err)
			return nil
		}
		return r.chunks
	case <-ctx.Done():
		logger.Debug("Turn %d: retrieval budget exhausted", seq)
		return nil
	}
}

// transition moves from one expected state to another.
func (s *RealtimeSession) transition(from, to domain.SessionState) error {
	s.stateMu.Lock()
	if s.state != from {
		current := s.state
		s.stateMu.Unlock()
		if current.Terminal() {
			return domain.ErrSessionClosed
		}
		return domain.ErrSessionActive
	}
	s.state = to
	s.stateMu.Unlock()

	s.emit(domain.SessionEvent{Kind: domain.EventStateChanged, State: to})
	return nil
}

// fail settles a session that never reached the receive loop.
func (s *RealtimeSession) fail(err error) {
	s.stateMu.Lock()
	if s.state.Terminal() {
		s.stateMu.Unlock()
		return
	}
	s.state = domain.StateErrored
	s.stateMu.Unlock()

	s.emit(domain.SessionEvent{Kind: domain.EventSessionError, Err: err})
	s.emit(domain.SessionEvent{Kind: domain.EventStateChanged, State: domain.StateErrored})
	s.closeEvents()
	close(s.done)
}

// finish settles the final state once the transport has terminated.
// A transport error outside a deliberate stop lands in Errored;
// everything else lands in Closed.
func (s *RealtimeSession) finish(transportErr error) {
	final := domain.StateClosed
	if transportErr != nil && !s.stopping.Load() {
		final = domain.StateErrored
	}

	s.stateMu.Lock()
	if s.state.Terminal() {
		s.stateMu.Unlock()
		return
	}
	s.state = final
	s.stateMu.Unlock()

	if final == domain.StateErrored {
		s.emit(domain.SessionEvent{Kind: domain.EventSessionError, Err: transportErr})
		logger.Warn("Session failed: %v", transportErr)
	} else {
		logger.Info("Session closed")
	}
	s.emit(domain.SessionEvent{Kind: domain.EventStateChanged, State: final})
	s.closeEvents()
	close(s.done)
}

// emit delivers an event without ever blocking the caller. Consumers
// that fall behind lose events rather than stalling the session. Once
// the stream is closed further events are discarded: a turn goroutine
// can outlive the transport.
func (s *RealtimeSession) emit(ev domain.SessionEvent) {
	ev.At = time.Now().UTC()
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.eventsClosed {
		logger.Debug("Session over, dropping %s", ev.Kind)
		return
	}
	select {
	case s.events <- ev:
	default:
		logger.Debug("Event buffer full, dropping %s", ev.Kind)
	}
}

func (s *RealtimeSession) closeEvents() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.eventsClosed = true
	close(s.events)
}
