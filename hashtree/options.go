package hashtree

import (
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"strings"
)

const (
	DefaultBlockSize = 4096
	DefaultDigest    = crypto.SHA256
)

// Config holds the construction time parameters of a tree.
type Config struct {
	// BlockSize is the size of the ciphertext block covered by one leaf. The
	// max leaf number is derived from the file size and the block size.
	BlockSize uint64
	// AdataSize is the size of the caller defined data stored in each leaf.
	AdataSize int
	Digest    crypto.Hash
	Policy    Policy
}

type Option func(*Config)

func WithBlockSize(size uint64) Option {
	return func(c *Config) { c.BlockSize = size }
}

func WithAdataSize(size int) Option {
	return func(c *Config) { c.AdataSize = size }
}

func WithDigest(h crypto.Hash) Option {
	return func(c *Config) { c.Digest = h }
}

func WithPolicy(p Policy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithConfig replaces all the settings with cfg. Options that follow it
// still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

func NewConfig(opts ...Option) Config {
	cfg := Config{
		BlockSize: DefaultBlockSize,
		Digest:    DefaultDigest,
		Policy:    PolicyNone,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// MaxLeafForFileSize returns the max leaf number of a file of the given size.
func (c Config) MaxLeafForFileSize(size uint64) int64 {
	if size == 0 {
		return MaxLeafEmpty
	}
	return int64((size - 1) / c.BlockSize)
}

var digestNames = map[string]crypto.Hash{
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

// ParseDigest accepts sha256, sha384 and sha512. The empty string selects
// DefaultDigest.
func ParseDigest(name string) (crypto.Hash, error) {
	name = strings.ToLower(strings.ReplaceAll(name, "-", ""))
	if name == "" {
		return DefaultDigest, nil
	}
	if h, ok := digestNames[name]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrDigestNotUsable, name)
}
