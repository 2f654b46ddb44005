// Package pcm adapts io.Reader/io.Writer byte streams to the audio
// source and sink ports. Frames are raw PCM16 mono at 24kHz, the format
// the realtime API expects on both directions.
package pcm

import (
	"errors"
	"io"
	"sync"

	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure implementations satisfy the ports.
var (
	_ driven.AudioSource = (*ReaderSource)(nil)
	_ driven.AudioSink   = (*WriterSink)(nil)
)

// DefaultFrameSize is 100ms of PCM16 mono at 24kHz.
const DefaultFrameSize = 4800

// ReaderSource reads fixed-size PCM frames from an io.Reader, typically
// a capture pipe or a file in tests.
type ReaderSource struct {
	frames    chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewReaderSource starts pumping frames from r. frameSize of 0 uses
// DefaultFrameSize. A short final frame is delivered as-is.
func NewReaderSource(r io.Reader, frameSize int) *ReaderSource {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	s := &ReaderSource{
		frames: make(chan []byte, 8),
		closed: make(chan struct{}),
	}

	go func() {
		defer close(s.frames)
		for {
			buf := make([]byte, frameSize)
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				select {
				case s.frames <- buf[:n]:
				case <-s.closed:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return s
}

// Frames returns the capture stream.
func (s *ReaderSource) Frames() <-chan []byte {
	return s.frames
}

// Close stops capture. The frame channel closes once the pump exits.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// WriterSink writes playback frames to an io.Writer, typically a
// playback pipe or a buffer in tests.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriterSink wraps w as an audio sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write plays one audio frame.
func (s *WriterSink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("audio sink closed")
	}
	_, err := s.w.Write(frame)
	return err
}

// Close releases the sink. If the writer is an io.Closer it is closed.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
