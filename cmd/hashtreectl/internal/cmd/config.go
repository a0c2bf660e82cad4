package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/datatrails/go-datatrails-hashtree/signer"
)

const (
	defaultConfigFile = "hashtree.toml"
	defaultKeyFile    = "root.pem"

	StoreFile    = "file"
	StoreLevelDB = "leveldb"
	StoreAzurite = "azurite"
)

var ErrStoreKind = errors.New("unknown store kind")

// StoreConfig names the metadata object. Path is the file or the LevelDB
// directory. ObjectID selects the object within LevelDB or the blob
// container.
type StoreConfig struct {
	Kind      string `toml:"kind"`
	Path      string `toml:"path,omitempty"`
	ObjectID  string `toml:"object_id,omitempty"`
	PageSize  int    `toml:"page_size,omitempty"`
	Container string `toml:"container,omitempty"`
}

// Config is the hashtreectl configuration file. Relative paths are resolved
// against the directory holding the file.
type Config struct {
	path string

	LogLevel  string          `toml:"log_level"`
	BlockSize uint64          `toml:"block_size"`
	AdataSize int             `toml:"adata_size"`
	Digest    string          `toml:"digest"`
	Policy    hashtree.Policy `toml:"policy"`
	Algorithm string          `toml:"algorithm"`
	KeyPath   string          `toml:"key_path"`
	Store     StoreConfig     `toml:"store"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:  "INFO",
		BlockSize: hashtree.DefaultBlockSize,
		Digest:    "sha256",
		Policy:    hashtree.PolicyLocks,
		Algorithm: "ES256",
		KeyPath:   defaultKeyFile,
		Store: StoreConfig{
			Kind: StoreFile,
			Path: "tree.meta",
		},
	}
}

func LoadConfig(file string) (*Config, error) {
	conf := defaultConfig()
	if _, err := toml.DecodeFile(file, conf); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", file, err)
	}
	conf.path = file
	if _, err := conf.treeOptions(); err != nil {
		return nil, err
	}
	switch conf.Store.Kind {
	case StoreFile, StoreLevelDB, StoreAzurite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrStoreKind, conf.Store.Kind)
	}
	return conf, nil
}

func SaveConfig(file string, conf *Config) error {
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(conf)
}

// resolve returns p relative to the directory of the configuration file.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

func (c *Config) treeOptions() ([]hashtree.Option, error) {
	digest, err := hashtree.ParseDigest(c.Digest)
	if err != nil {
		return nil, err
	}
	return []hashtree.Option{
		hashtree.WithBlockSize(c.BlockSize),
		hashtree.WithAdataSize(c.AdataSize),
		hashtree.WithDigest(digest),
		hashtree.WithPolicy(c.Policy),
	}, nil
}

func (c *Config) loadSigner() (*signer.Signer, error) {
	alg, err := signer.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return nil, err
	}
	key, err := signer.ReadKeyFile(c.resolve(c.KeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load the root signing key: %w", err)
	}
	return signer.New(alg, key)
}
