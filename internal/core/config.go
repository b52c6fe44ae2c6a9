package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Duplicate login policies accepted by server.duplicate_login_policy.
const (
	DuplicatePolicyReject = "reject"
	DuplicatePolicyEvict  = "evict"
)

// Config contains all of the configuration options available to any of the
// server's components.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Port on which the game server will listen.
	Port int `mapstructure:"port"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`

	Logging struct {
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"logging"`

	Database struct {
		// Database engine; either "sqlite" or "postgres".
		Engine string `mapstructure:"engine"`
		// Path of the sqlite database file (sqlite engine only).
		Filename string `mapstructure:"filename"`
		// Connection parameters for the postgres engine.
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Name     string `mapstructure:"name"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Server struct {
		// Message of the day shown in the client's server list.
		MOTD string `mapstructure:"motd"`
		// Maximum number of logged-in players advertised and enforced.
		MaxPlayers int `mapstructure:"max_players"`
		// Protocol version advertised to clients.
		ProtocolVersion int `mapstructure:"protocol_version"`
		// Version name advertised in the status response.
		VersionName string `mapstructure:"version_name"`
		// What to do when a second login arrives for an already connected
		// identity; either "reject" or "evict".
		DuplicateLoginPolicy string `mapstructure:"duplicate_login_policy"`
		// How long the status (server list ping) response is cached.
		StatusCacheTTL time.Duration `mapstructure:"status_cache_ttl"`
		// How long shutdown waits for sessions to close before dropping them.
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded packets to stdout.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "MINEGATE"

// LoadConfig initializes Viper with the contents of the config file under
// configPath and unmarshals it into a Config.
func LoadConfig(configPath string) (*Config, error) {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no config file found in path %s", configPath)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: MINEGATE_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("error binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults() {
	viper.SetDefault("hostname", "0.0.0.0")
	viper.SetDefault("port", 25565)
	viper.SetDefault("max_connections", 3000)
	viper.SetDefault("logging.log_level", "info")
	viper.SetDefault("database.engine", "sqlite")
	viper.SetDefault("database.filename", "minegate.db")
	viper.SetDefault("server.motd", "A Minegate Server")
	viper.SetDefault("server.max_players", 20)
	viper.SetDefault("server.protocol_version", 764)
	viper.SetDefault("server.version_name", "1.20.2")
	viper.SetDefault("server.duplicate_login_policy", DuplicatePolicyReject)
	viper.SetDefault("server.status_cache_ttl", 5*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
}

func (c *Config) validate() error {
	switch c.Server.DuplicateLoginPolicy {
	case DuplicatePolicyReject, DuplicatePolicyEvict:
	default:
		return fmt.Errorf("invalid server.duplicate_login_policy %q (want %q or %q)",
			c.Server.DuplicateLoginPolicy, DuplicatePolicyReject, DuplicatePolicyEvict)
	}

	switch c.Database.Engine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.engine %q (want \"sqlite\" or \"postgres\")", c.Database.Engine)
	}
	return nil
}

// ListenAddress returns the address the game server should bind.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a postgres connection string generated from the
// configured database values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}
