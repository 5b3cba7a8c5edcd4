package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Store           StoreConfig    `yaml:"store"`
	Lamp            LampConfig     `yaml:"lamp"`
	Link            LinkConfig     `yaml:"link"`
	Monitor         MonitorConfig  `yaml:"monitor"`
	Scenario        ScenarioConfig `yaml:"scenario"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// StoreConfig contains the non-volatile store settings
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory", "file" or "sqlite"
	Path    string `yaml:"path"`    // Backing file for "file" and "sqlite"
	Size    int    `yaml:"size"`    // Store size in bytes (default: 256)
}

// LampConfig contains the PWM output settings
type LampConfig struct {
	Backend string `yaml:"backend"`  // "periph" or "console"
	WarmPin string `yaml:"warm_pin"` // GPIO name for the warm white channel
	CoolPin string `yaml:"cool_pin"` // GPIO name for the cool white channel
	PWMHz   int    `yaml:"pwm_hz"`   // PWM carrier frequency (default: 1000)
}

// LinkConfig contains the protocol link settings
type LinkConfig struct {
	Transport    string   `yaml:"transport"`     // "serial", "tcp" or "none"
	Port         string   `yaml:"port"`          // Serial device path
	Baud         int      `yaml:"baud"`          // Serial baud rate (default: 115200)
	Listen       string   `yaml:"listen"`        // TCP listen address (default: 127.0.0.1:7020)
	PollInterval Duration `yaml:"poll_interval"` // Tick pacing for background work (default: 10ms)
}

// MonitorConfig contains monitor server settings
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// ScenarioConfig contains startup scenario settings
type ScenarioConfig struct {
	Script string `yaml:"script"` // Lua script path, empty = no scenario
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./coachlight.nvram"
	}
	if cfg.Store.Size == 0 {
		cfg.Store.Size = 256
	}

	// Lamp defaults: the Pi hardware PWM pins
	if cfg.Lamp.Backend == "" {
		cfg.Lamp.Backend = "console"
	}
	if cfg.Lamp.WarmPin == "" {
		cfg.Lamp.WarmPin = "GPIO18"
	}
	if cfg.Lamp.CoolPin == "" {
		cfg.Lamp.CoolPin = "GPIO13"
	}
	if cfg.Lamp.PWMHz == 0 {
		cfg.Lamp.PWMHz = 1000
	}

	// Link defaults
	if cfg.Link.Transport == "" {
		cfg.Link.Transport = "tcp"
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 115200
	}
	if cfg.Link.Listen == "" {
		cfg.Link.Listen = "127.0.0.1:7020"
	}
	if cfg.Link.PollInterval == 0 {
		cfg.Link.PollInterval = Duration(10 * time.Millisecond)
	}

	// Monitor defaults
	if cfg.Monitor.Port == 0 {
		cfg.Monitor.Port = 9090
	}
	if cfg.Monitor.Host == "" {
		cfg.Monitor.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
