package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all credentials and runtime settings for connecting to and
// streaming from a camera.
type Config struct {
	Account  AccountConfig
	Camera   CameraConfig
	Session  SessionConfig
}

// AccountConfig holds the login credentials used to obtain an account
// session via the account package.
type AccountConfig struct {
	Email    string
	Password string
}

// CameraConfig selects which camera to connect to when an account has more
// than one registered. Either field may be left blank to mean "the only
// camera on the account" at the call site's discretion.
type CameraConfig struct {
	MAC string
	UID string
}

// SessionConfig tunes the transport and mux behavior.
type SessionConfig struct {
	// UDPPort is the local UDP port the transport binds for P2P traffic.
	// Zero lets the transport choose an ephemeral port.
	UDPPort int
	// MaxBufSize caps the transport's internal AV receive buffer, in bytes.
	MaxBufSize int
}

// Load reads configuration from a .env-style file.
func Load(envPath string) (*Config, error) {
	file, err := os.Open(envPath)
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer file.Close()

	cfg := &Config{
		Session: SessionConfig{
			UDPPort:    0,
			MaxBufSize: 5 * 1024 * 1024,
		},
	}
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// URL decode values that might be encoded
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			// If decode fails, use original value
			decodedValue = value
		}

		switch key {
		case "email":
			cfg.Account.Email = decodedValue
		case "password":
			cfg.Account.Password = decodedValue
		case "camera_mac":
			cfg.Camera.MAC = decodedValue
		case "camera_uid":
			cfg.Camera.UID = decodedValue
		case "udp_port":
			port, err := strconv.Atoi(decodedValue)
			if err != nil {
				return nil, fmt.Errorf("invalid udp_port %q: %w", decodedValue, err)
			}
			cfg.Session.UDPPort = port
		case "max_buf_size":
			size, err := strconv.Atoi(decodedValue)
			if err != nil {
				return nil, fmt.Errorf("invalid max_buf_size %q: %w", decodedValue, err)
			}
			cfg.Session.MaxBufSize = size
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan env file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are present.
func (c *Config) Validate() error {
	if c.Account.Email == "" {
		return fmt.Errorf("missing email")
	}
	if c.Account.Password == "" {
		return fmt.Errorf("missing password")
	}
	if c.Camera.MAC == "" && c.Camera.UID == "" {
		return fmt.Errorf("missing camera_mac or camera_uid")
	}
	if c.Session.MaxBufSize <= 0 {
		return fmt.Errorf("max_buf_size must be positive")
	}
	return nil
}
