package config

import (
	"os"
	"path/filepath"
	"time"
)

// ClientConfig holds the settings of the headless client.
type ClientConfig struct {
	BackendURL     string        // BACKEND_URL
	SessionFile    string        // SESSION_FILE, default ~/.table-reservation/session.json
	RequestTimeout time.Duration // REQUEST_TIMEOUT
	AutoRefresh    bool          // AUTO_REFRESH
	RefreshMargin  time.Duration // REFRESH_MARGIN
	LogLevel       string        // LOG_LEVEL
	Env            string        // APP_ENV
}

// LoadClient reads the client settings.  None are required.
func LoadClient() ClientConfig {
	return ClientConfig{
		BackendURL:     getenv("BACKEND_URL", "http://localhost:8080"),
		SessionFile:    getenv("SESSION_FILE", defaultSessionFile()),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 10*time.Second),
		AutoRefresh:    envBool("AUTO_REFRESH", true),
		RefreshMargin:  envDur("REFRESH_MARGIN", time.Minute),
		LogLevel:       getenv("LOG_LEVEL", "warn"),
		Env:            getenv("APP_ENV", "dev"),
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".table-reservation-session.json"
	}
	return filepath.Join(home, ".table-reservation", "session.json")
}
