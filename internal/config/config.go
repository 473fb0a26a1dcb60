package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string

	SupabaseURL        string
	SupabaseServiceKey string
	ContentBucket      string
	OutputBucket       string

	// PlatformURLPattern expands a library identifier into the base URL of
	// that library's content API, e.g. "https://%s.example.edu/@api".
	PlatformURLPattern string
	BotUser            string
	CredentialsFile    string

	TranslateURL string
	SourceLang   string
	MailerURL    string
	MailerSecret string

	CoverTag       string
	Fanout         int
	PauseMillis    int
	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		ContentBucket:      getenv("CONTENT_BUCKET", "translation-input"),
		OutputBucket:       getenv("OUTPUT_BUCKET", "translation-output"),

		PlatformURLPattern: getenv("PLATFORM_URL_PATTERN", "https://%s.example.edu/@api"),
		BotUser:            getenv("PLATFORM_BOT_USER", "translation-bot"),
		CredentialsFile:    getenv("PLATFORM_CREDENTIALS_FILE", "credentials.yaml"),

		TranslateURL: getenv("TRANSLATE_URL", "http://127.0.0.1:8090"),
		SourceLang:   getenv("SOURCE_LANG", "en"),
		MailerURL:    os.Getenv("MAILER_URL"),
		MailerSecret: os.Getenv("MAILER_SECRET"),

		CoverTag:       getenv("COVER_TAG", "coverpage:yes"),
		Fanout:         getenvInt("TREE_FANOUT", 2),
		PauseMillis:    getenvInt("PAUSE_MILLIS", 500),
		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

// Pause is the rate-limit pause inserted between platform calls.
func (c Config) Pause() time.Duration { return time.Duration(c.PauseMillis) * time.Millisecond }
