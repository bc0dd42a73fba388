package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	Token      = "token"
	BaseURL    = "base_url"
	Retries    = "retries"
	RetryDelay = "retry_delay"
	Timeout    = "timeout"

	DefaultRetries    = 3
	DefaultRetryDelay = 2

	configName = ".sentinel"
	envPrefix  = "SENTINEL"
)

// InitConfig initializes the configuration
func InitConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	Load(home)
}

// Load wires defaults, environment and the optional config file found in dir.
func Load(dir string) {
	viper.SetDefault(Retries, DefaultRetries)
	viper.SetDefault(RetryDelay, DefaultRetryDelay)
	viper.SetDefault(Timeout, 0)

	viper.AddConfigPath(dir)
	viper.SetConfigType("yaml")
	viper.SetConfigName(configName)

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; the token may come from the environment.
	_ = viper.ReadInConfig()
}

// SetToken sets the authorization token in the configuration file
func SetToken(token string) error {
	viper.Set(Token, token)
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.WriteConfigAs(filepath.Join(home, configName+".yaml"))
}

// GetToken returns the authorization token from the configuration
func GetToken() string {
	return viper.GetString(Token)
}

// GetBaseURL returns the API root override; empty means the client default.
func GetBaseURL() string {
	return viper.GetString(BaseURL)
}

// GetRetries returns the configured attempt count, never less than one.
func GetRetries() int {
	n := viper.GetInt(Retries)
	if n < 1 {
		return 1
	}
	return n
}

// GetRetryDelay returns the pause between attempts. The config value is in seconds.
func GetRetryDelay() time.Duration {
	secs := viper.GetFloat64(RetryDelay)
	if secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// GetTimeout returns the HTTP timeout in seconds; zero leaves the transport default.
func GetTimeout() time.Duration {
	return time.Duration(viper.GetInt(Timeout)) * time.Second
}
