package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"timed-quiz-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz Quiz `yaml:"quiz"`
}

// Quiz configures the question source and session timings. Zero values fall
// back to app.DefaultSettings.
type Quiz struct {
	Source         string   `yaml:"source" env:"QUIZ_SOURCE"`
	CacheTTL       string   `yaml:"cache_ttl" env:"QUIZ_CACHE_TTL"`
	Genres         []string `yaml:"genres" env:"QUIZ_GENRES" envSeparator:","`
	PicksPerGenre  int      `yaml:"picks_per_genre" env:"QUIZ_PICKS_PER_GENRE"`
	CountdownTicks int      `yaml:"countdown_ticks" env:"QUIZ_COUNTDOWN_TICKS"`
	TickInterval   string   `yaml:"tick_interval" env:"QUIZ_TICK_INTERVAL"`
	NoticeDelay    string   `yaml:"notice_delay" env:"QUIZ_NOTICE_DELAY"`
	RevealDelay    string   `yaml:"reveal_delay" env:"QUIZ_REVEAL_DELAY"`
	AnswerDelay    string   `yaml:"answer_delay" env:"QUIZ_ANSWER_DELAY"`
	TimeoutDelay   string   `yaml:"timeout_delay" env:"QUIZ_TIMEOUT_DELAY"`
	PassThreshold  int      `yaml:"pass_threshold" env:"QUIZ_PASS_THRESHOLD"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error; the environment and defaults still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Settings converts the quiz section into session settings.
func (c Config) Settings() app.Settings {
	s := app.DefaultSettings()
	q := c.Quiz
	if len(q.Genres) > 0 {
		s.Genres = q.Genres
	}
	if q.PicksPerGenre > 0 {
		s.PicksPerGenre = q.PicksPerGenre
	}
	if q.CountdownTicks > 0 {
		s.CountdownTicks = q.CountdownTicks
	}
	if q.PassThreshold > 0 {
		s.PassThreshold = q.PassThreshold
	}
	s.TickInterval = TTLDuration(q.TickInterval, s.TickInterval)
	s.NoticeDelay = TTLDuration(q.NoticeDelay, s.NoticeDelay)
	s.RevealDelay = TTLDuration(q.RevealDelay, s.RevealDelay)
	s.AnswerDelay = TTLDuration(q.AnswerDelay, s.AnswerDelay)
	s.TimeoutDelay = TTLDuration(q.TimeoutDelay, s.TimeoutDelay)
	return s
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
