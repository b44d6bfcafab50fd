// Package config provides configuration structures and defaults for the oszifox viewer
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"oszifox-viewer/internal/filter"
)

// Config represents the complete application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial" yaml:"serial"`   // Instrument serial link
	Display DisplayConfig `mapstructure:"display" yaml:"display"` // Trace reconstruction and view
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`   // Websocket trace feed
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"` // Frame recording
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"` // Logging configuration
}

// SerialConfig contains the instrument link parameters
type SerialConfig struct {
	Port        string        `mapstructure:"port" yaml:"port"`                 // Serial device path
	BaudRate    int           `mapstructure:"baud_rate" yaml:"baud_rate"`       // Line speed
	DataBits    int           `mapstructure:"data_bits" yaml:"data_bits"`       // The instrument sends 7-bit characters
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"` // Poll interval of the read loop
	Simulate    bool          `mapstructure:"simulate" yaml:"simulate"`         // Use the built-in instrument simulator
	SimWave     string        `mapstructure:"sim_wave" yaml:"sim_wave"`         // Simulator waveform: sine, square, triangle
}

// DisplayConfig contains trace reconstruction settings
type DisplayConfig struct {
	Kernel     string `mapstructure:"kernel" yaml:"kernel"`         // Interpolation kernel: bspline or lanczos3
	Oversample int    `mapstructure:"oversample" yaml:"oversample"` // Output points per sample interval
	TUI        bool   `mapstructure:"tui" yaml:"tui"`               // Run the terminal viewer
}

// ServerConfig contains the websocket feed settings
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"` // Serve traces over HTTP/websocket
	Listen  string `mapstructure:"listen" yaml:"listen"`   // Listen address
}

// CaptureConfig contains frame recording settings
type CaptureConfig struct {
	File string `mapstructure:"file" yaml:"file"` // Capture file path, empty disables recording
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // Log level (debug, info, warn, error)
	File  string `mapstructure:"file" yaml:"file"`   // Log file path, empty logs to stderr
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyS0",           // First on-board serial port
			BaudRate:    19200,                  // Instrument line speed
			DataBits:    7,                      // 7N1 framing
			ReadTimeout: 100 * time.Millisecond, // Keeps the read loop responsive to shutdown
			Simulate:    false,
			SimWave:     "sine",
		},
		Display: DisplayConfig{
			Kernel:     filter.Default.Name, // Cubic B-spline
			Oversample: 5,                   // 5 points per sample interval
			TUI:        true,                // Terminal viewer on by default
		},
		Server: ServerConfig{
			Enabled: false,
			Listen:  "localhost:8080",
		},
		Capture: CaptureConfig{
			File: "", // Recording disabled by default
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Validate checks the configuration for values the viewer cannot run with
func (c *Config) Validate() error {
	if !c.Serial.Simulate && c.Serial.Port == "" {
		return fmt.Errorf("serial port not specified")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Serial.BaudRate)
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		return fmt.Errorf("invalid data bits: %d (must be between 5 and 8)", c.Serial.DataBits)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v", c.Serial.ReadTimeout)
	}
	if _, err := filter.ByName(c.Display.Kernel); err != nil {
		return err
	}
	if c.Display.Oversample < 1 {
		return fmt.Errorf("invalid oversample factor: %d (must be at least 1)", c.Display.Oversample)
	}
	if c.Server.Enabled && c.Server.Listen == "" {
		return fmt.Errorf("server enabled but no listen address given")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Logging.Level)
	}
	if !c.Display.TUI && !c.Server.Enabled && c.Capture.File == "" {
		return fmt.Errorf("nothing to do: enable the terminal viewer, the server or a capture file")
	}
	return nil
}

// Debug reports whether debug logging is enabled
func (c *Config) Debug() bool {
	return c.Logging.Level == "debug"
}

// WriteFile saves the configuration as YAML
func (c *Config) WriteFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads a YAML configuration file on top of the defaults
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, err)
	}
	return cfg, nil
}
