package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rm-hull/godx"
	"github.com/rs/zerolog/log"

	"github.com/rm-hull/authfetch/internal"
)

const migrationsPath = "migrations"

// SessionBackend is a SessionStore that owns a connection.
type SessionBackend interface {
	internal.SessionStore
	Close() error
	Check() *internal.PingCheck
}

// LoadSettings reads .env (if any) and the environment.
func LoadSettings() internal.Settings {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
	return internal.SettingsFromEnv()
}

// bootstrap opens the session store and builds the authenticated client that
// every command shares.
func bootstrap(settings internal.Settings, metrics *internal.Metrics) (*internal.AuthClient, SessionBackend, error) {
	godx.GitVersion()
	godx.EnvironmentVars()
	godx.UserInfo()

	loc, err := internal.ParseLocation(settings.PageURL)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(settings)
	if err != nil {
		return nil, nil, err
	}

	client := internal.NewAuthClient(store, internal.NewOriginResolver(settings.APIURL, loc), internal.ClientConfig{
		LoginPath: settings.LoginPath,
		Metrics:   metrics,
	})
	return client, store, nil
}

func openStore(settings internal.Settings) (SessionBackend, error) {
	if settings.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		log.Info().Msgf("using redis session store at %s", settings.RedisAddr)
		return internal.NewRedisStore(rdb, ""), nil
	}

	if dir := filepath.Dir(settings.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	db, err := internal.Connect(settings.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	if err := internal.Migrate(migrationsPath, settings.DBPath); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate SQL")
	}

	return internal.NewSQLiteStore(db), nil
}
