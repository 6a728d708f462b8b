package internal

import "os"

const (
	apiURLEnvVar    = "API_URL"
	pageURLEnvVar   = "PAGE_URL"
	loginPathEnvVar = "LOGIN_PATH"
	dbPathEnvVar    = "SESSION_DB"
	redisEnvVar     = "REDIS_ADDR"
)

// Settings gathers the runtime configuration shared by every command.
type Settings struct {
	APIURL    string // build-time style override of the API origin
	PageURL   string // location the client runs at, if any
	LoginPath string
	DBPath    string
	RedisAddr string
}

func SettingsFromEnv() Settings {
	return Settings{
		APIURL:    os.Getenv(apiURLEnvVar),
		PageURL:   os.Getenv(pageURLEnvVar),
		LoginPath: GetEnv(loginPathEnvVar, DefaultLoginPath),
		DBPath:    GetEnv(dbPathEnvVar, "data/session.db"),
		RedisAddr: os.Getenv(redisEnvVar),
	}
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
