package cmd

import (
	"context"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/rm-hull/authfetch/internal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func withStore(settings internal.Settings, fn func(internal.SessionStore) error) error {
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
	}()
	return fn(store)
}

// SessionSet stores a credential pair obtained from the login flow.
func SessionSet(ctx context.Context, settings internal.Settings, access, refresh string) error {
	return withStore(settings, func(store internal.SessionStore) error {
		if err := internal.SaveSession(ctx, store, access, refresh); err != nil {
			return err
		}
		log.Info().Bool("refresh", refresh != "").Msg("session stored")
		return nil
	})
}

func SessionStatus(ctx context.Context, settings internal.Settings, out io.Writer) error {
	return withStore(settings, func(store internal.SessionStore) error {
		status, err := internal.GetSessionStatus(ctx, store)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	})
}

func SessionClear(ctx context.Context, settings internal.Settings) error {
	return withStore(settings, func(store internal.SessionStore) error {
		if err := internal.ClearSession(ctx, store); err != nil {
			return err
		}
		log.Info().Msg("session cleared")
		return nil
	})
}
