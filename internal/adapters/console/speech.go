package console

import (
	"context"
	"fmt"
	"io"

	"github.com/linzo/meet/internal/domain"
)

// Synthesizer prints spoken output to out, for clients without an audio
// device. Satisfies the speech.Synthesizer hook.
func Synthesizer(out io.Writer) func(ctx context.Context, text string, lang domain.Lang) error {
	return func(ctx context.Context, text string, lang domain.Lang) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "[%s] %s\n", lang, text)
		return err
	}
}

// Player discards fetched audio after a context check. Used where playback
// hardware is absent but the remote TTS path should still be exercised.
func Player() func(ctx context.Context, audio []byte) error {
	return func(ctx context.Context, audio []byte) error {
		return ctx.Err()
	}
}
