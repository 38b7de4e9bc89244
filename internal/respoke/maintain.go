package respoke

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	minRedial = time.Second
	maxRedial = 30 * time.Second
)

// Maintain keeps an application socket attached to outbox, redialing with
// exponential backoff whenever it drops. It returns when ctx is cancelled.
func Maintain(ctx context.Context, socketURL, appSecret string, outbox *Outbox, logger zerolog.Logger) {
	delay := minRedial

	for {
		socket, err := Dial(ctx, socketURL, appSecret, logger)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", delay).Msg("respoke socket dial failed")
		} else {
			logger.Info().Msg("application-level socket connection established to Respoke")
			delay = minRedial
			outbox.SetSocket(socket)

			select {
			case <-ctx.Done():
				outbox.SetSocket(nil)
				socket.Close()
				return
			case <-socket.Done():
				outbox.SetSocket(nil)
				logger.Warn().Msg("respoke socket disconnected")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRedial {
			delay = maxRedial
		}
	}
}
