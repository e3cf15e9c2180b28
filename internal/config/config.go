// internal/config/config.go
//
// Process configuration read from the environment.
// A .env file in the working directory is loaded first (development only;
// variables already set in the environment win).
//
// Environment variables (defaults in brackets):
//   PORT [5175]                   listen port
//   LOG_LEVEL [info]              zerolog level
//   LOG_FORMAT [json]             "json" or "console"
//   CLIENT_ORIGIN [http://localhost:5173]
//   SESSION_SECRET [dev_secret_change_me]  HS256 key for session tokens
//   TOKEN_TTL [24h]               session token lifetime
//   SESSION_TTL [2h]              idle sessions older than this are swept
//   SETTLE_DELAY_MS [1000]        pause before a flipped pair is judged
//   ADVANCE_DELAY_MS [3000]       pause before the next level is dealt
//   DAILY_SALT [local_dev_salt]   salt for daily board seeds
//   COLORS_FILE []                catalog override; empty uses the embedded one

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the server.
type Config struct {
	Port          string
	LogLevel      string
	LogFormat     string
	ClientOrigin  string
	SessionSecret string
	TokenTTL      time.Duration
	SessionTTL    time.Duration
	SettleDelay   time.Duration
	AdvanceDelay  time.Duration
	DailySalt     string
	ColorsFile    string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	c := &Config{
		Port:          getEnv("PORT", "5175"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		SessionSecret: getEnv("SESSION_SECRET", "dev_secret_change_me"),
		DailySalt:     getEnv("DAILY_SALT", "local_dev_salt"),
		ColorsFile:    os.Getenv("COLORS_FILE"),
	}
	var err error
	if c.TokenTTL, err = durationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if c.SessionTTL, err = durationEnv("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if c.SettleDelay, err = millisEnv("SETTLE_DELAY_MS", 1000); err != nil {
		return nil, err
	}
	if c.AdvanceDelay, err = millisEnv("ADVANCE_DELAY_MS", 3000); err != nil {
		return nil, err
	}
	return c, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s=%q: want a positive duration", k, v)
	}
	return d, nil
}

func millisEnv(k string, def int) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s=%q: want a positive number of milliseconds", k, v)
	}
	return time.Duration(n) * time.Millisecond, nil
}
