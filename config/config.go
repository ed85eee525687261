// Package config provides YAML configuration parsing for distancelog.
//
// This package enables running distancelog as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	rpc:
//	  address: ${DISTANCE_RPC_ADDR:-127.0.0.1:25565}
//	  reconnect_delay: 10s
//
//	data:
//	  snapshot: data/query_results.json
//	  changelist: data/changelist.json
//
//	update:
//	  delay: 5m
//
//	workshop:
//	  enabled: true
//
//	official_levels:
//	  sprint: [Broken Symmetry, Lost Society]
//	  stunt: [Refraction]
//
//	redis:
//	  address: ${REDIS_ADDR:-}
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/notify"
)

// Defaults applied by [Parse] to unset fields.
const (
	DefaultReconnectDelay     = 10 * time.Second
	DefaultIOTimeout          = 60 * time.Second
	DefaultSnapshotPath       = "query_results.json"
	DefaultChangelistPath     = "changelist.json"
	DefaultMaxConcurrency     = 16
	DefaultIdleTimeout        = 60 * time.Second
	DefaultUpdateDelay        = 5 * time.Minute
	DefaultPort               = 8080
	DefaultRedisChannel       = notify.DefaultChannel
	DefaultWorkshopMaxResults = level.DefaultWorkshopMaxResults
)

// minTimeout is the smallest accepted I/O and idle timeout.
const minTimeout = 1 * time.Second

// Config is the root configuration structure for distancelog.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	RPC            RPCConfig            `yaml:"rpc"`
	Data           DataConfig           `yaml:"data"`
	Fetch          FetchConfig          `yaml:"fetch"`
	Workshop       WorkshopConfig       `yaml:"workshop"`
	Update         UpdateConfig         `yaml:"update"`
	OfficialLevels OfficialLevelsConfig `yaml:"official_levels"`
	Server         ServerConfig         `yaml:"server"`
	Redis          RedisConfig          `yaml:"redis"`
}

// RPCConfig configures the connection to the leaderboard service.
type RPCConfig struct {
	// Address is the host:port of the service. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Address string `yaml:"address"`

	// ReconnectDelay is the fixed wait between connection attempts.
	// Defaults to 10s.
	ReconnectDelay Duration `yaml:"reconnect_delay"`

	// IOTimeout bounds each dial, write and read. Defaults to 60s.
	IOTimeout Duration `yaml:"io_timeout"`
}

// DataConfig locates the persisted files.
type DataConfig struct {
	// Snapshot is the path of the last fetched results.
	// Defaults to query_results.json.
	Snapshot string `yaml:"snapshot"`

	// Changelist is the path of the record changelist.
	// Defaults to changelist.json.
	Changelist string `yaml:"changelist"`
}

// FetchConfig configures concurrent leaderboard fetching.
type FetchConfig struct {
	// MaxConcurrency bounds the number of queries in flight. Defaults to 16.
	MaxConcurrency int `yaml:"max_concurrency"`

	// IdleTimeout is how long a batch may go without progress before the
	// remaining queries are abandoned. Defaults to 60s.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// QueryTimeout bounds each query. Zero means no per-query bound.
	QueryTimeout Duration `yaml:"query_timeout"`
}

// WorkshopConfig configures workshop level discovery.
type WorkshopConfig struct {
	// Enabled turns workshop discovery on. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// MaxResults bounds the workshop query. Defaults to 10000.
	MaxResults uint32 `yaml:"max_results"`

	// Search restricts the query to matching items. Empty matches all.
	Search string `yaml:"search"`
}

// IsEnabled reports whether workshop discovery is on.
func (w WorkshopConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// UpdateConfig configures the update loop of the serve command.
type UpdateConfig struct {
	// Delay is the wait after a cycle finishes before the next starts.
	// Defaults to 5m when unset; an explicit 0s runs cycles back to back.
	Delay *Duration `yaml:"delay"`

	// DelayStart waits Delay before the first cycle too.
	DelayStart bool `yaml:"delay_start"`

	// CycleTimeout bounds a whole cycle. Zero means no bound.
	CycleTimeout Duration `yaml:"cycle_timeout"`
}

// Interval returns the configured delay, or [DefaultUpdateDelay] when none
// is set.
func (u UpdateConfig) Interval() time.Duration {
	if u.Delay == nil {
		return DefaultUpdateDelay
	}
	return u.Delay.Duration()
}

// OfficialLevelsConfig lists the official level names per mode. When every
// list is empty the built-in level list is used.
type OfficialLevelsConfig struct {
	Sprint    []string `yaml:"sprint"`
	Challenge []string `yaml:"challenge"`
	Stunt     []string `yaml:"stunt"`
}

// IsEmpty reports whether no official level is configured.
func (o OfficialLevelsConfig) IsEmpty() bool {
	return len(o.Sprint) == 0 && len(o.Challenge) == 0 && len(o.Stunt) == 0
}

// byMode returns the configured lists keyed by mode.
func (o OfficialLevelsConfig) byMode() map[level.Mode][]string {
	return map[level.Mode][]string{
		level.Sprint:    o.Sprint,
		level.Challenge: o.Challenge,
		level.Stunt:     o.Stunt,
	}
}

// ServerConfig configures the HTTP API of the serve command.
type ServerConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`
}

// RedisConfig configures change notification over Redis pub/sub.
// Notification is off when Address is empty.
type RedisConfig struct {
	// Address is the host:port of the Redis server.
	// Supports environment variable substitution.
	Address string `yaml:"address"`

	// Password is the Redis password. Supports environment variable
	// substitution.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`

	// Channel is the pub/sub channel. Defaults to distancelog:changes.
	Channel string `yaml:"channel"`
}

// Enabled reports whether Redis notification is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is non-empty if default syntax was used
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the rpc address and the redis
// address and password. Defaults are applied to unset fields.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RPC.ReconnectDelay == 0 {
		c.RPC.ReconnectDelay = Duration(DefaultReconnectDelay)
	}
	if c.RPC.IOTimeout == 0 {
		c.RPC.IOTimeout = Duration(DefaultIOTimeout)
	}
	if c.Data.Snapshot == "" {
		c.Data.Snapshot = DefaultSnapshotPath
	}
	if c.Data.Changelist == "" {
		c.Data.Changelist = DefaultChangelistPath
	}
	if c.Fetch.MaxConcurrency == 0 {
		c.Fetch.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Fetch.IdleTimeout == 0 {
		c.Fetch.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if c.Workshop.MaxResults == 0 {
		c.Workshop.MaxResults = DefaultWorkshopMaxResults
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.RPC.Address == "" {
		return fmt.Errorf("rpc.address is required")
	}
	expanded, err := expandEnvVars(c.RPC.Address)
	if err != nil {
		return fmt.Errorf("rpc.address: %w", err)
	}
	c.RPC.Address = expanded
	if _, _, err := net.SplitHostPort(c.RPC.Address); err != nil {
		return fmt.Errorf("rpc.address must be host:port, got %q: %w", c.RPC.Address, err)
	}

	if c.RPC.ReconnectDelay.Duration() < 0 {
		return fmt.Errorf("rpc.reconnect_delay cannot be negative, got %s", c.RPC.ReconnectDelay.Duration())
	}
	if c.RPC.IOTimeout.Duration() < minTimeout {
		return fmt.Errorf("rpc.io_timeout must be at least %s, got %s", minTimeout, c.RPC.IOTimeout.Duration())
	}

	if c.Data.Snapshot == c.Data.Changelist {
		return fmt.Errorf("data.snapshot and data.changelist must be different files, both are %q", c.Data.Snapshot)
	}

	if c.Fetch.MaxConcurrency < 1 {
		return fmt.Errorf("fetch.max_concurrency must be at least 1, got %d", c.Fetch.MaxConcurrency)
	}
	if c.Fetch.IdleTimeout.Duration() < minTimeout {
		return fmt.Errorf("fetch.idle_timeout must be at least %s, got %s", minTimeout, c.Fetch.IdleTimeout.Duration())
	}
	if c.Fetch.QueryTimeout.Duration() < 0 {
		return fmt.Errorf("fetch.query_timeout cannot be negative, got %s", c.Fetch.QueryTimeout.Duration())
	}

	if c.Update.Interval() < 0 {
		return fmt.Errorf("update.delay cannot be negative, got %s", c.Update.Interval())
	}
	if c.Update.CycleTimeout.Duration() < 0 {
		return fmt.Errorf("update.cycle_timeout cannot be negative, got %s", c.Update.CycleTimeout.Duration())
	}

	official := c.OfficialLevels.byMode()
	for _, mode := range level.Modes {
		names := official[mode]
		key := "official_levels." + strings.ToLower(mode.Name())
		seen := make(map[string]struct{}, len(names))
		for i, name := range names {
			if name == "" {
				return fmt.Errorf("%s[%d]: name is required", key, i)
			}
			if _, exists := seen[name]; exists {
				return fmt.Errorf("%s[%d]: duplicate level %q", key, i, name)
			}
			seen[name] = struct{}{}
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	addr, err := expandEnvVars(c.Redis.Address)
	if err != nil {
		return fmt.Errorf("redis.address: %w", err)
	}
	c.Redis.Address = addr
	password, err := expandEnvVars(c.Redis.Password)
	if err != nil {
		return fmt.Errorf("redis.password: %w", err)
	}
	c.Redis.Password = password
	if c.Redis.Enabled() {
		if _, _, err := net.SplitHostPort(c.Redis.Address); err != nil {
			return fmt.Errorf("redis.address must be host:port, got %q: %w", c.Redis.Address, err)
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative, got %d", c.Redis.DB)
	}

	return nil
}
