package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// cliConfig is the on-disk configuration of the CLI.
//
//	addr = "192.168.1.50:22"
//	transport = "ssh"
//	user = "default"
//	password = "forgetme"
//
//	[aliases]
//	Level1 = "Level"
//	Meter1 = "AudioMeter"
type cliConfig struct {
	// Addr is the device address, host:port.
	Addr string `toml:"addr"`

	// Transport selects "ssh" or "tcp".
	Transport string `toml:"transport"`

	// User and Password authenticate the SSH transport.
	User     string `toml:"user"`
	Password string `toml:"password"`

	// DialTimeout bounds connection setup.
	DialTimeout duration `toml:"dial_timeout"`

	// Catalog points at a YAML block catalog. Empty means the
	// built-in one.
	Catalog string `toml:"catalog"`

	// Aliases maps block aliases to their catalog block types, for
	// schema-validated commands.
	Aliases map[string]string `toml:"aliases"`
}

// duration lets TOML carry values like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func defaultConfig() cliConfig {
	return cliConfig{
		Transport:   "ssh",
		User:        "default",
		DialTimeout: duration{5 * time.Second},
	}
}

func loadConfig(path string) (cliConfig, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}

	switch config.Transport {
	case "ssh", "tcp":
	default:
		return config, fmt.Errorf("%s: transport must be \"ssh\" or \"tcp\", got %q", path, config.Transport)
	}
	return config, nil
}
