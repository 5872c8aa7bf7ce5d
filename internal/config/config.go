package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Dialect DialectConfig `yaml:"dialect"`
	Link    LinkConfig    `yaml:"link"`
	Serial  SerialConfig  `yaml:"serial"`
	UDP     UDPConfig     `yaml:"udp"`
	Replay  ReplayConfig  `yaml:"replay"`
	Record  RecordConfig  `yaml:"record"`
}

type DialectConfig struct {
	Paths []string `yaml:"paths"`
}

type LinkConfig struct {
	Protocol       string `yaml:"protocol"`
	SystemID       byte   `yaml:"system_id"`
	ComponentID    byte   `yaml:"component_id"`
	LinkID         byte   `yaml:"link_id"`
	SigningKeyPath string `yaml:"signing_key_path"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Enable bool   `yaml:"enable"`
}

type UDPConfig struct {
	Dest string `yaml:"dest"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if len(cfg.Dialect.Paths) == 0 {
		return Config{}, fmt.Errorf("dialect.paths is required")
	}

	if cfg.Link.Protocol == "" {
		cfg.Link.Protocol = "v2"
	}
	if cfg.Link.Protocol != "v1" && cfg.Link.Protocol != "v2" {
		return Config{}, fmt.Errorf("link.protocol must be v1 or v2, got %q", cfg.Link.Protocol)
	}

	if cfg.UDP.Dest == "" {
		return Config{}, fmt.Errorf("udp.dest is required")
	}

	if cfg.Serial.Enable && cfg.Replay.Enable {
		return Config{}, fmt.Errorf("serial.enable and replay.enable cannot both be set")
	}
	if cfg.Serial.Enable && cfg.Serial.Device == "" {
		return Config{}, fmt.Errorf("serial.device is required when serial.enable is true")
	}

	if cfg.Replay.Enable {
		if cfg.Replay.Path == "" {
			return Config{}, fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed == 0 {
			cfg.Replay.Speed = 1
		}
		if cfg.Replay.Speed < 0 {
			return Config{}, fmt.Errorf("replay.speed must be > 0")
		}
	}

	if !cfg.Serial.Enable && !cfg.Replay.Enable {
		return Config{}, fmt.Errorf("one of serial.enable or replay.enable must be set")
	}

	if cfg.Record.Enable && cfg.Record.Path == "" {
		return Config{}, fmt.Errorf("record.path is required when record.enable is true")
	}

	return cfg, nil
}
