package v1alpha1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/stevearc/worklock/pkg/constants"
	"gopkg.in/yaml.v3"
)

// LockConfig selects and parameterizes the lock backend used by a worker
// process. It is read once at startup; the resulting factory is shared
// process-wide.
type LockConfig struct {
	// One of the constants.*Backend identifiers. Empty defaults to "none".
	Backend string `json:"backend,omitempty" toml:"backend" yaml:"backend"`

	File  *FileLockSpec    `json:"file,omitempty" toml:"file" yaml:"file"`
	Redis *RedisClientSpec `json:"redis,omitempty" toml:"redis" yaml:"redis"`
	Etcd  *EtcdClientSpec  `json:"etcd,omitempty" toml:"etcd" yaml:"etcd"`
}

type FileLockSpec struct {
	// Directory holding the advisory lock files, created on first use.
	// Defaults to constants.DefaultLockDir.
	Dir string `json:"dir,omitempty" toml:"dir" yaml:"dir"`
}

func (c *LockConfig) Validate() error {
	switch c.Backend {
	case "", constants.NoneBackend, constants.ProcessBackend:
	case constants.FileBackend:
	case constants.RedisBackend, constants.ExternalBackend:
		if c.Redis == nil || len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("backend %q requires at least one redis address", c.Backend)
		}
	case constants.EtcdBackend:
		if c.Etcd == nil || len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("backend %q requires at least one etcd endpoint", c.Backend)
		}
	default:
		return fmt.Errorf("unrecognized lock backend %q", c.Backend)
	}
	return nil
}

// LockDir returns the configured lock directory, falling back to the
// conventional runtime directory.
func (c *LockConfig) LockDir() string {
	if c.File != nil && c.File.Dir != "" {
		return c.File.Dir
	}
	return constants.DefaultLockDir
}

// Decode parses a LockConfig from raw bytes, trying JSON, TOML, then YAML.
func Decode(data []byte) (*LockConfig, error) {
	config := &LockConfig{}
	r := bytes.NewReader(data)
	jsonErr := json.NewDecoder(r).Decode(config)
	if jsonErr == nil {
		return config, nil
	}
	_, tomlErr := toml.Decode(string(data), config)
	if tomlErr == nil {
		return config, nil
	}
	yamlErr := yaml.Unmarshal(data, config)
	if yamlErr == nil {
		return config, nil
	}
	return nil, fmt.Errorf("failed to decode config as JSON: %w, as TOML: %w, as YAML: %w", jsonErr, tomlErr, yamlErr)
}

// Load reads and decodes a LockConfig from a file, then validates it.
func Load(path string) (*LockConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
