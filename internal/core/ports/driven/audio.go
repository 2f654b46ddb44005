package driven

// AudioSource supplies captured PCM16 microphone frames.
// Device I/O lives in the shell; the core only consumes frames.
type AudioSource interface {
	// Frames returns the capture stream. The channel is closed when the
	// source ends or is closed.
	Frames() <-chan []byte

	// Close stops capture immediately and closes the frame channel.
	Close() error
}

// AudioSink consumes assistant PCM16 audio for playback.
type AudioSink interface {
	// Write plays (or buffers) one audio frame.
	Write(frame []byte) error

	// Close releases the playback device.
	Close() error
}
