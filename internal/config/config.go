package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Hostname     string `mapstructure:"hostname"`
	PollInterval int    `mapstructure:"poll_interval"`
	Concurrency  int    `mapstructure:"concurrency"`
	WatchEvents  bool   `mapstructure:"watch_events"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EtcdConfig holds etcd-related configuration. When disabled, statuses are
// kept in memory.
type EtcdConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Endpoints         []string `mapstructure:"endpoints"`
	DialTimeout       float64  `mapstructure:"dial_timeout"`
	PathPrefix        string   `mapstructure:"path_prefix"`
	LockTTL           float64  `mapstructure:"lock_ttl"`
	LockTimeout       float64  `mapstructure:"lock_timeout"`
	LockRetryInterval float64  `mapstructure:"lock_retry_interval"`
}

// RemoteConfig controls command execution on servers over ssh.
type RemoteConfig struct {
	SSHBinary             string  `mapstructure:"ssh_binary"`
	Timeout               float64 `mapstructure:"timeout"`
	ConnectTimeout        int     `mapstructure:"connect_timeout"`
	IdentityFile          string  `mapstructure:"identity_file"`
	StrictHostKeyChecking bool    `mapstructure:"strict_host_key_checking"`
	HealthCacheTTL        float64 `mapstructure:"health_cache_ttl"`
}

// HardenerConfig lists directories handed back to the server user after a
// privileged mkdir.
type HardenerConfig struct {
	OwnedRoots []string `mapstructure:"owned_roots"`
}

// ProxyConfig describes the reverse-proxy container managed on each server.
type ProxyConfig struct {
	ContainerName string   `mapstructure:"container_name"`
	Path          string   `mapstructure:"path"`
	ComposeFile   string   `mapstructure:"compose_file"`
	StopTimeout   int      `mapstructure:"stop_timeout"`
	AutoRestart   bool     `mapstructure:"auto_restart"`
	Networks      []string `mapstructure:"networks"`
}

// APIConfig holds the HTTP API configuration.
type APIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ServerConfig is one remote Docker host in the inventory.
type ServerConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	IP           string `mapstructure:"ip"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Transport    string `mapstructure:"transport"`
	DockerHost   string `mapstructure:"docker_host"`
	IdentityFile string `mapstructure:"identity_file"`
	Disabled     bool   `mapstructure:"disabled"`
	ProxyEnabled bool   `mapstructure:"proxy_enabled"`
}

// ResourceConfig is one monitored application or service.
type ResourceConfig struct {
	ID                  string   `mapstructure:"id"`
	UUID                string   `mapstructure:"uuid"`
	Name                string   `mapstructure:"name"`
	Kind                string   `mapstructure:"kind"`
	ServerID            string   `mapstructure:"server_id"`
	AdditionalServerIDs []string `mapstructure:"additional_server_ids"`
	ComposeFile         string   `mapstructure:"compose_file"`
	Compose             string   `mapstructure:"compose"`
	PullRequestID       int      `mapstructure:"pull_request_id"`
}

// Config is the top-level configuration struct.
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Logging   LoggingConfig    `mapstructure:"log"`
	Etcd      EtcdConfig       `mapstructure:"etcd"`
	Remote    RemoteConfig     `mapstructure:"remote"`
	Hardener  HardenerConfig   `mapstructure:"hardener"`
	Proxy     ProxyConfig      `mapstructure:"proxy"`
	API       APIConfig        `mapstructure:"api"`
	Servers   []ServerConfig   `mapstructure:"servers"`
	Resources []ResourceConfig `mapstructure:"resources"`
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig(configFile string) error {
	viper.SetDefault("app.hostname", "your-hostname")
	viper.SetDefault("app.poll_interval", 15)
	viper.SetDefault("app.concurrency", 4)
	viper.SetDefault("app.watch_events", true)
	viper.SetDefault("log.level", "INFO")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("etcd.enabled", false)
	viper.SetDefault("etcd.endpoints", []string{"http://localhost:2379"})
	viper.SetDefault("etcd.dial_timeout", 2.0)
	viper.SetDefault("etcd.path_prefix", "/container-status")
	viper.SetDefault("etcd.lock_ttl", 5.0)
	viper.SetDefault("etcd.lock_timeout", 2.0)
	viper.SetDefault("etcd.lock_retry_interval", 0.1)
	viper.SetDefault("remote.ssh_binary", "ssh")
	viper.SetDefault("remote.timeout", 30.0)
	viper.SetDefault("remote.connect_timeout", 10)
	viper.SetDefault("remote.strict_host_key_checking", false)
	viper.SetDefault("remote.health_cache_ttl", 60.0)
	viper.SetDefault("hardener.owned_roots", []string{"/data/coolify", "/tmp/coolify"})
	viper.SetDefault("proxy.container_name", "coolify-proxy")
	viper.SetDefault("proxy.path", "/data/coolify/proxy")
	viper.SetDefault("proxy.stop_timeout", 30)
	viper.SetDefault("proxy.auto_restart", true)
	viper.SetDefault("proxy.networks", []string{"coolify"})
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listen_addr", ":8080")

	// Specify the config file details.
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config") // Looks for config.yaml
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}
