package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// config is read once at startup from the environment (and .env, see main).
type config struct {
	DBURL  string
	Port   string
	AppEnv string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	ContentTimeout time.Duration

	// RedisAddr selects the Redis plan locker; empty falls back to Postgres
	// advisory locks.
	RedisAddr string

	RevisionCron        string
	RevisionConcurrency int

	CORSOrigins []string
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

func loadConfig() config {
	return config{
		DBURL:               envString("DB_URL", ""),
		Port:                envString("PORT", "3000"),
		AppEnv:              envString("APP_ENV", "development"),
		OpenAIAPIKey:        envString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       envString("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:         envString("OPENAI_MODEL", "gpt-4o-mini"),
		ContentTimeout:      time.Duration(envInt("CONTENT_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisAddr:           envString("REDIS_ADDR", ""),
		RevisionCron:        envString("REVISION_CRON", "0 0 6 * * *"),
		RevisionConcurrency: envInt("REVISION_CONCURRENCY", 4),
		CORSOrigins:         envList("CORS_ORIGINS", defaultCORSOrigins),
	}
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// envInt falls back to def when the variable is unset, malformed or not
// positive.
func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
