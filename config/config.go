// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Authorization AuthorizationConfiguration
	Auth          AuthConfiguration
	Policies      PoliciesConfiguration
	RateLimit     RateLimitConfiguration
	Metrics       MetricsConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr                string
	Password            string
	DB                  int
	PoolSize            int
	EncryptionKey       string
	DefaultCacheTTL     time.Duration
	InvalidationChannel string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

// AuthorizationConfiguration drives the policy cache and its refresh job.
type AuthorizationConfiguration struct {
	Mode                  string
	UnsafeAllowPermissive bool
	RefreshDelay          time.Duration
	RefreshInterval       time.Duration
	PageSize              int
	SystemActor           string
}

// AuthConfiguration holds the actor token verification settings.
type AuthConfiguration struct {
	JWTSecret string
}

type PoliciesConfiguration struct {
	BootstrapFile string
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
}

type MetricsConfiguration struct {
	Enabled bool
}

var config *Configuration

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolSize", 10)
	viper.SetDefault("redis.dialTimeout", "5s")
	viper.SetDefault("redis.readTimeout", "3s")
	viper.SetDefault("redis.writeTimeout", "3s")
	viper.SetDefault("redis.poolTimeout", "4s")
	viper.SetDefault("redis.defaultCacheTTL", "10m")
	viper.SetDefault("redis.invalidationChannel", "authz:policy-invalidations")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("authorization.mode", "ENFORCING")
	viper.SetDefault("authorization.unsafeAllowPermissive", false)
	viper.SetDefault("authorization.refreshDelay", "10s")
	viper.SetDefault("authorization.refreshInterval", "120s")
	viper.SetDefault("authorization.pageSize", 30)
	viper.SetDefault("authorization.systemActor", "urn:li:corpuser:__datahub_system")
	viper.SetDefault("auth.jwtSecret", "")
	viper.SetDefault("policies.bootstrapFile", "")
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("log.dir", "")
}

// BindFlags exposes the command-line overrides and binds them into viper.
func BindFlags(flags *pflag.FlagSet) error {
	flags.String("config", "", "path to the configuration file")
	flags.String("port", "", "HTTP listen port")
	flags.String("log-dir", "", "directory for log files")
	if err := viper.BindPFlag("config.file", flags.Lookup("config")); err != nil {
		return err
	}
	if err := viper.BindPFlag("server.port", flags.Lookup("port")); err != nil {
		return err
	}
	return viper.BindPFlag("log.dir", flags.Lookup("log-dir"))
}

func InitConfig() error {
	if file := viper.GetString("config.file"); file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.AddConfigPath("config") // path to look for the config file in
		viper.SetConfigName("config") // name of the config file (without extension)
		viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
