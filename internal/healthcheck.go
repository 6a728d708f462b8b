package internal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PingCheck adapts a store's ping to the gin-healthcheck Check interface.
type PingCheck struct {
	name string
	ping func(context.Context) error
}

func (pc *PingCheck) Pass() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pc.ping(ctx); err != nil {
		log.Warn().Err(err).Str("check", pc.name).Msg("healthcheck failed")
		return false
	}
	return true
}

func (pc *PingCheck) Name() string {
	return pc.name
}
