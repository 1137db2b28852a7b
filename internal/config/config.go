// Package config loads the optional configuration file (named endpoints,
// token lists, ABI search roots) and layers POKE_* environment overrides on
// top. A missing or malformed file never prevents startup: defaults apply
// and the warning is surfaced in the status bar.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"poke/internal/pkg/validator"
)

// DefaultEndpoint is dialed when no endpoint flag is given.
const DefaultEndpoint = "http://localhost:8545"

// NamedEndpoint is a config-file endpoint the user can :connect to by name.
type NamedEndpoint struct {
	Name string `mapstructure:"name" validate:"required"`
	URL  string `mapstructure:"url" validate:"required,endpoint"`
}

// Token describes one ERC-20 the balance view queries.
type Token struct {
	Address  string `mapstructure:"address" validate:"required,eth_address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// Config is everything the composition root needs beyond the CLI flags.
type Config struct {
	Endpoints []NamedEndpoint `mapstructure:"endpoints"`
	Tokens    []Token         `mapstructure:"tokens"`
	ABIRoots  []string        `mapstructure:"abi_roots"`
	LabelDB   string          `mapstructure:"label_db"`
	LogFile   string          `mapstructure:"log_file"`
	LogLevel  string          `mapstructure:"log_level"`

	// Warning carries the load problem, if any, for the status bar.
	Warning string `mapstructure:"-"`
}

// envOverrides are the POKE_* environment variables layered over the file.
type envOverrides struct {
	Config   string `envconfig:"CONFIG"` // config file path override
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LabelDB  string `envconfig:"LABEL_DB"`
}

// Load reads the config file once. It never fails: any problem is folded
// into the returned Warning.
func Load() Config {
	cfg := Config{
		LabelDB:  "poke-labels.db",
		LogFile:  "poke.log",
		LogLevel: "info",
	}

	var env envOverrides
	_ = envconfig.Process("POKE", &env)

	v := viper.New()
	v.SetConfigType("yaml")
	if env.Config != "" {
		v.SetConfigFile(env.Config)
	} else {
		v.SetConfigName("poke")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/poke")
		}
	}

	// A present-but-broken file is worth a warning; absence is not.
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			cfg.Warning = "config: " + err.Error()
		}
	} else if err := v.Unmarshal(&cfg); err != nil {
		cfg.Warning = "config: " + err.Error()
	} else {
		cfg.Warning = validateLoaded(&cfg)
	}

	if env.LogFile != "" {
		cfg.LogFile = env.LogFile
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	if env.LabelDB != "" {
		cfg.LabelDB = env.LabelDB
	}

	return cfg
}

// isNotFound covers both viper's own not-found error and a plain missing
// explicit path.
func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}

// validateLoaded drops invalid entries instead of failing startup, keeping a
// one-line summary for the status bar.
func validateLoaded(cfg *Config) string {
	var problems []string

	endpoints := cfg.Endpoints[:0]
	for _, ep := range cfg.Endpoints {
		if err := validator.Validate(ep); err != nil {
			problems = append(problems, fmt.Sprintf("endpoint %q dropped", ep.Name))
			continue
		}
		endpoints = append(endpoints, ep)
	}
	cfg.Endpoints = endpoints

	tokens := cfg.Tokens[:0]
	for _, token := range cfg.Tokens {
		if err := validator.Validate(token); err != nil {
			problems = append(problems, fmt.Sprintf("token %q dropped", token.Symbol))
			continue
		}
		tokens = append(tokens, token)
	}
	cfg.Tokens = tokens

	if len(problems) == 0 {
		return ""
	}
	return "config: " + strings.Join(problems, ", ")
}

// EndpointByName resolves a named endpoint from the config file.
func (c Config) EndpointByName(name string) (string, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep.URL, true
		}
	}
	return "", false
}
