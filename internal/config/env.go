package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultPoolPrefix is the environment prefix of the Woods International pool.
const DefaultPoolPrefix = "WOODS_INTERNATIONAL"

// DefaultPort is the SQL Server port used when <PREFIX>_PORT is unset.
const DefaultPort = 1433

// PoolConfig is the connection configuration of one named pool, read from
// <PREFIX>_SERVER, <PREFIX>_PORT, <PREFIX>_USER, <PREFIX>_PASSWORD and
// <PREFIX>_DATABASE.
type PoolConfig struct {
	Name     string
	Prefix   string
	Server   string
	Port     int
	User     string
	Password string
	Database string
}

// PoolFromEnv reads the pool configuration for prefix from the process
// environment. The pool is named after its prefix.
func PoolFromEnv(prefix string) PoolConfig {
	prefix = strings.ToUpper(strings.TrimSuffix(prefix, "_"))

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetDefault("port", DefaultPort)

	port := v.GetInt("port")
	if port <= 0 {
		port = DefaultPort
	}

	return PoolConfig{
		Name:     prefix,
		Prefix:   prefix,
		Server:   strings.TrimSpace(v.GetString("server")),
		Port:     port,
		User:     v.GetString("user"),
		Password: v.GetString("password"),
		Database: strings.TrimSpace(v.GetString("database")),
	}
}

// Missing returns the environment variables that must be set before a pool
// can be created. An empty result means the configuration is complete.
func (c PoolConfig) Missing() []string {
	var missing []string
	if c.Server == "" {
		missing = append(missing, c.Prefix+"_SERVER")
	}
	if c.User == "" {
		missing = append(missing, c.Prefix+"_USER")
	}
	if c.Password == "" {
		missing = append(missing, c.Prefix+"_PASSWORD")
	}
	if c.Database == "" {
		missing = append(missing, c.Prefix+"_DATABASE")
	}
	return missing
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return gotenv.Load(path)
}
