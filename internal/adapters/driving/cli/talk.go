package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

var (
	talkShowContext bool
	talkAudioIn     string
	talkAudioOut    string
)

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Start a realtime voice session",
	Long: `Opens a duplex realtime session with the speech model. Captured
audio streams up, assistant audio streams back, and every turn is
grounded: the most relevant knowledge chunks are injected before the
assistant responds.

Audio attaches through --audio-in and --audio-out as raw PCM16 files
or FIFOs, typically fed by an external capture/playback tool.

Type a line and press enter to submit a text message into the
conversation. Press Ctrl-C or type /quit to end the session.`,
	RunE: runTalk,
}

func init() {
	talkCmd.Flags().BoolVar(&talkShowContext, "show-context", false, "print injected knowledge chunks")
	talkCmd.Flags().StringVar(&talkAudioIn, "audio-in", "", "PCM16 capture file or FIFO")
	talkCmd.Flags().StringVar(&talkAudioOut, "audio-out", "", "PCM16 playback file or FIFO")
	rootCmd.AddCommand(talkCmd)
}

func runTalk(cmd *cobra.Command, _ []string) error {
	if newSession == nil {
		return errors.New("session service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := newSession(ctx, SessionOptions{AudioIn: talkAudioIn, AudioOut: talkAudioOut})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	cmd.Println("Session active. Speak, or type a message. /quit to exit.")

	// Typed input feeds the same turn pipeline as speech.
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" {
				stop()
				return
			}
			if err := session.SubmitText(ctx, line); err != nil {
				cmd.PrintErrf("submit failed: %v\n", err)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = session.Stop(context.Background())
	}()

	var lastErr error
	assistantSpoke := false
	for ev := range session.Events() {
		switch ev.Kind {
		case domain.EventUserTranscript:
			if assistantSpoke {
				cmd.Println()
				assistantSpoke = false
			}
			cmd.Printf("you: %s\n", ev.Text)
		case domain.EventTranscriptDelta:
			if !assistantSpoke {
				cmd.Print("cuby: ")
				assistantSpoke = true
			}
			cmd.Print(ev.Text)
		case domain.EventTurnComplete:
			if assistantSpoke {
				cmd.Println()
				assistantSpoke = false
			}
		case domain.EventRetrievalInjected:
			if talkShowContext {
				cmd.Printf("[context: %d chunks]\n", len(ev.Chunks))
				for _, c := range ev.Chunks {
					cmd.Printf("  - %s #%d (%.3f)\n", c.Document.Name, c.Chunk.Position, c.Score)
				}
			}
		case domain.EventSessionError:
			lastErr = ev.Err
			cmd.PrintErrf("session error: %v\n", ev.Err)
		}
	}

	if session.State() == domain.StateErrored {
		if lastErr == nil {
			lastErr = errors.New("session failed")
		}
		return fmt.Errorf("session ended with error: %w", lastErr)
	}
	cmd.Println("Session closed.")
	return nil
}
