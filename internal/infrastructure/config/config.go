package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Config is the root configuration structure for a test rig.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Logging    LoggingConfig    `yaml:"logging"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Components ComponentsConfig `yaml:"components"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Workers    []WorkerConfig   `yaml:"workers"`
}

// SiteConfig identifies the rig.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// InfluxDBConfig contains InfluxDB connection settings for proxy traffic
// statistics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// StatsInterval is how often proxy owner counters are written, in
	// seconds.
	StatsInterval int `yaml:"stats_interval"`
}

// MQTTConfig contains MQTT broker connection settings, used by connectors
// that bridge frames over a broker.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// ComponentsConfig declares the connector and auxiliary entries the binder
// installs.
type ComponentsConfig struct {
	Connectors  []ComponentEntry `yaml:"connectors"`
	Auxiliaries []ComponentEntry `yaml:"auxiliaries"`
}

// ComponentEntry is one configured component.
type ComponentEntry struct {
	// Name is the unique entry name the component resolves by.
	Name string `yaml:"name"`

	// Type is the locator string, "<module/path>:<TypeName>".
	Type string `yaml:"type"`

	// Config holds static constructor arguments, passed verbatim to the
	// component factory.
	Config map[string]any `yaml:"config"`

	// Connectors maps a logical role name to a connector entry name.
	// Auxiliaries only.
	Connectors map[string]string `yaml:"connectors"`
}

// ProxyConfig configures the shared-channel proxy owner.
type ProxyConfig struct {
	// Enabled starts a proxy owner on the named connector entry.
	Enabled bool `yaml:"enabled"`

	// Connector is the connector entry serving as the physical channel.
	Connector string `yaml:"connector"`

	// Channels are the names of the thread proxy channels to open and
	// attach.
	Channels []string `yaml:"channels"`

	// MpChannels are the names of the multiprocess proxy channels to
	// create and attach.
	MpChannels []string `yaml:"mp_channels"`

	// QueueDir is where multiprocess queue sockets are created.
	// Empty uses the system temp directory.
	QueueDir string `yaml:"queue_dir"`
}

// WorkerConfig describes one external helper process the rig supervises
// (protocol daemons, brokers, remote rig workers).
type WorkerConfig struct {
	Name                string   `yaml:"name"`
	Binary              string   `yaml:"binary"`
	Args                []string `yaml:"args"`
	RestartOnFailure    bool     `yaml:"restart_on_failure"`
	RestartDelaySeconds int      `yaml:"restart_delay_seconds"`
	MaxRestartAttempts  int      `yaml:"max_restart_attempts"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TESTRIG_SECTION_KEY
// For example: TESTRIG_LOGGING_LEVEL, TESTRIG_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "rig-001",
			Name: "Test Rig",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
			StatsInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TESTRIG_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Site
	if v := os.Getenv("TESTRIG_SITE_ID"); v != "" {
		cfg.Site.ID = v
	}

	// Logging
	if v := os.Getenv("TESTRIG_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// InfluxDB
	if v := os.Getenv("TESTRIG_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Proxy
	if v := os.Getenv("TESTRIG_PROXY_QUEUE_DIR"); v != "" {
		cfg.Proxy.QueueDir = v
	}
}

// Validate checks the configuration for errors.
//
// Component link references are checked here as well as at install time so
// a bad config fails before any component is constructed.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Component validation: unique names, locators present, links resolve
	names := make(map[string]string) // name -> kind
	for _, entry := range c.Components.Connectors {
		if entry.Name == "" {
			errs = append(errs, "components.connectors: entry with empty name")
			continue
		}
		if _, dup := names[entry.Name]; dup {
			errs = append(errs, fmt.Sprintf("components: duplicate entry name %q", entry.Name))
		}
		names[entry.Name] = "connector"
		if entry.Type == "" {
			errs = append(errs, fmt.Sprintf("components.connectors.%s: type is required", entry.Name))
		}
	}
	for _, entry := range c.Components.Auxiliaries {
		if entry.Name == "" {
			errs = append(errs, "components.auxiliaries: entry with empty name")
			continue
		}
		if _, dup := names[entry.Name]; dup {
			errs = append(errs, fmt.Sprintf("components: duplicate entry name %q", entry.Name))
		}
		names[entry.Name] = "auxiliary"
		if entry.Type == "" {
			errs = append(errs, fmt.Sprintf("components.auxiliaries.%s: type is required", entry.Name))
		}
		for role, target := range entry.Connectors {
			if kind, ok := names[target]; !ok || kind != "connector" {
				errs = append(errs, fmt.Sprintf(
					"components.auxiliaries.%s: role %q references unknown connector %q",
					entry.Name, role, target))
			}
		}
	}

	// Proxy validation
	if c.Proxy.Enabled {
		if kind, ok := names[c.Proxy.Connector]; !ok || kind != "connector" {
			errs = append(errs, fmt.Sprintf("proxy.connector: %q is not a configured connector", c.Proxy.Connector))
		}
		if len(c.Proxy.Channels) == 0 && len(c.Proxy.MpChannels) == 0 {
			errs = append(errs, "proxy: at least one channel is required when enabled")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Worker validation
	for _, w := range c.Workers {
		if w.Name == "" || w.Binary == "" {
			errs = append(errs, "workers: name and binary are required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ComponentSpecs converts the configured component entries into binder
// install specs, connectors first.
func (c *Config) ComponentSpecs() []component.Spec {
	specs := make([]component.Spec, 0, len(c.Components.Connectors)+len(c.Components.Auxiliaries))
	for _, entry := range c.Components.Connectors {
		specs = append(specs, component.Spec{
			Name:   entry.Name,
			Kind:   component.KindConnector,
			Type:   entry.Type,
			Config: entry.Config,
		})
	}
	for _, entry := range c.Components.Auxiliaries {
		specs = append(specs, component.Spec{
			Name:       entry.Name,
			Kind:       component.KindAuxiliary,
			Type:       entry.Type,
			Config:     entry.Config,
			Connectors: entry.Connectors,
		})
	}
	return specs
}

// GetStatsInterval returns the proxy stats flush interval as a Duration.
func (c *Config) GetStatsInterval() time.Duration {
	interval := c.InfluxDB.StatsInterval
	if interval <= 0 {
		interval = 10
	}
	return time.Duration(interval) * time.Second
}
