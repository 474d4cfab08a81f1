package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth mode constants.
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthBasic = "basic"
)

// Config is the root configuration structure for BusPro Core.
// All configuration is loaded from YAML; a fixed set of fields can be
// overridden by environment variables (see applyEnvOverrides).
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Store     StoreConfig     `yaml:"store"`
	History   HistoryConfig   `yaml:"history"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Auth      AuthConfig      `yaml:"auth"`
	UserAuth  AuthConfig      `yaml:"user_auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Debug     DebugConfig     `yaml:"debug"`
}

// GatewayConfig contains BusPro UDP gateway settings.
type GatewayConfig struct {
	// Host is the gateway address outbound telegrams are sent to.
	Host string `yaml:"host"`

	// Port is the gateway UDP port (BusPro gateways use 6000).
	Port int `yaml:"port"`

	// LocalUDPPort is the local bind port for receiving telegrams.
	// Usually the same as Port; gateways broadcast on 6000.
	LocalUDPPort int `yaml:"local_udp_port"`

	// LocalIP overrides the sender IPv4 embedded in outgoing frames.
	// If empty, the address is auto-detected from the route to Host.
	LocalIP string `yaml:"local_ip"`

	// SendInterval is the minimum spacing between outbound telegrams
	// in milliseconds. 0 uses the built-in default pacing.
	SendInterval int `yaml:"send_interval_ms"`

	// PollInterval is the idle read_status polling period in seconds.
	PollInterval int `yaml:"poll_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`

	// Prefix is the base topic for state/command topics (default "buspro").
	Prefix string `yaml:"prefix"`

	// DiscoveryPrefix is the MQTT Discovery prefix (default "homeassistant").
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// Ingress trusts requests arriving through the platform ingress and
	// bypasses admin auth for them.
	Ingress bool `yaml:"ingress"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// StoreConfig contains JSON state store settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig contains state-change history database settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// RetentionDays controls pruning of old entries. 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains optional sensor telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// AuthConfig contains authentication settings for an HTTP surface.
// Mode is one of "none", "token", "basic".
type AuthConfig struct {
	Mode     string `yaml:"mode"`
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DebugConfig contains debug toggles.
type DebugConfig struct {
	// Enabled turns on debug-level application logging.
	Enabled bool `yaml:"enabled"`

	// Telegram traces raw UDP frames (hex) and decode failures.
	Telegram bool `yaml:"telegram"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BUSPRO_SECTION_KEY
// For example: BUSPRO_GATEWAY_HOST, BUSPRO_MQTT_PASSWORD
// Only the variables read by applyEnvOverrides are recognized; the
// local IP override is named BUSPRO_LOCAL_IP.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "127.0.0.1",
			Port:         6000,
			LocalUDPPort: 6000,
			PollInterval: 20,
		},
		MQTT: MQTTConfig{
			Host:            "localhost",
			Port:            1883,
			ClientID:        "buspro-core",
			Prefix:          "buspro",
			DiscoveryPrefix: "homeassistant",
			QoS:             0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8099,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Store: StoreConfig{
			Path: "./data/state.json",
		},
		History: HistoryConfig{
			Path:          "./data/history.db",
			RetentionDays: 30,
		},
		Auth: AuthConfig{
			Mode: AuthToken,
		},
		UserAuth: AuthConfig{
			Mode: AuthNone,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BUSPRO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BUSPRO_GATEWAY_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("BUSPRO_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("BUSPRO_LOCAL_IP"); v != "" {
		cfg.Gateway.LocalIP = v
	}

	if v := os.Getenv("BUSPRO_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("BUSPRO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("BUSPRO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv("BUSPRO_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("BUSPRO_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("BUSPRO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Host == "" {
		errs = append(errs, "gateway.host is required")
	}
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 1 and 65535")
	}
	if c.Gateway.LocalUDPPort < 1 || c.Gateway.LocalUDPPort > 65535 {
		errs = append(errs, "gateway.local_udp_port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Prefix == "" {
		errs = append(errs, "mqtt.prefix is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}

	normalizeAuth(&c.Auth)
	normalizeAuth(&c.UserAuth)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// normalizeAuth falls back to mode "none" when credentials for the selected
// mode are missing, so a half-configured auth section never locks out the
// surface it protects.
func normalizeAuth(a *AuthConfig) {
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
	switch a.Mode {
	case AuthToken:
		if a.Token == "" {
			a.Mode = AuthNone
		}
	case AuthBasic:
		if a.Username == "" || a.Password == "" {
			a.Mode = AuthNone
		}
	case AuthNone:
	default:
		a.Mode = AuthNone
	}
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetSendInterval returns the telegram pacing interval as a Duration.
// The default matches what HDL gateways tolerate without dropping frames.
func (c *Config) GetSendInterval() time.Duration {
	if c.Gateway.SendInterval <= 0 {
		return 180 * time.Millisecond
	}
	return time.Duration(c.Gateway.SendInterval) * time.Millisecond
}

// GetPollInterval returns the idle status polling period as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	if c.Gateway.PollInterval <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.Gateway.PollInterval) * time.Second
}
