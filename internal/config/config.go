package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-duel-service/internal/game"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port"`
		PublicBaseURL string `yaml:"publicBaseURL"`
		AllowedOrigin string `yaml:"allowedOrigin"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Bank struct {
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Challenge struct {
		TTL string `yaml:"ttl"`
	} `yaml:"challenge"`
	Game struct {
		Duration      string `yaml:"duration"`
		FeedbackDelay string `yaml:"feedbackDelay"`
		TimeBoost     string `yaml:"timeBoost"`
		Points        int    `yaml:"points"`
	} `yaml:"game"`
	Gemini struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	Neynar struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"neynar"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		TokenTTL  string `yaml:"tokenTTL"`
	} `yaml:"auth"`
}

// Load reads YAML config from path. Secrets left empty in the file are taken
// from GEMINI_API_KEY, NEYNAR_API_KEY and JWT_SECRET.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&c.Neynar.APIKey, "NEYNAR_API_KEY")
	fallback(&c.Auth.JWTSecret, "JWT_SECRET")
}

// GameConfig overlays the configured timings on game.DefaultConfig.
func (c Config) GameConfig() game.Config {
	g := game.DefaultConfig()
	g.Duration = TTLDuration(c.Game.Duration, g.Duration)
	g.FeedbackDelay = TTLDuration(c.Game.FeedbackDelay, g.FeedbackDelay)
	g.TimeBoost = TTLDuration(c.Game.TimeBoost, g.TimeBoost)
	if c.Game.Points > 0 {
		g.Points = c.Game.Points
	}
	return g
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
