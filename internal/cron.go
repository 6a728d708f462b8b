package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const DefaultKeepaliveSchedule = "*/10 * * * *" // Every 10 minutes

// StartKeepalive periodically requests path through the client so that an idle
// session gets its access credential refreshed through the normal 401 path.
func StartKeepalive(client *AuthClient, schedule, path string) (*cron.Cron, error) {
	c := cron.New()

	log.Info().Msgf("starting keepalive job for %s (%s)", path, schedule)

	if _, err := c.AddFunc(schedule, func() {
		keepalive(client, path)
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

func keepalive(client *AuthClient, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authenticated, err := IsAuthenticated(ctx, client.Store())
	if err != nil {
		log.Error().Err(err).Msg("keepalive: failed to read session")
		return
	}
	if !authenticated {
		log.Debug().Msg("keepalive: no session, skipping")
		return
	}

	resp, err := client.Request(ctx, path, RequestOptions{Method: http.MethodGet})
	if err != nil {
		if se, ok := AsSessionExpired(err); ok {
			log.Warn().Str("reason", string(se.Reason)).Msgf("keepalive: session lost, log in again at %s", client.LoginPath())
			return
		}
		log.Error().Err(err).Msg("keepalive request failed")
		return
	}
	discard(resp)
	log.Debug().Int("status", resp.StatusCode).Msg("keepalive completed")
}
