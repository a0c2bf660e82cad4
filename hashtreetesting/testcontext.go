// Package hashtreetesting provides the fixtures shared by the hash tree
// tests: a logger, a signer and an in memory metadata object, plus
// deterministic block content.
package hashtreetesting

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-hashtree/metastore"
	"github.com/datatrails/go-datatrails-hashtree/signer"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

const (
	DefaultBlockSize = 64
	DefaultAdataSize = 16
)

type TestConfig struct {
	TestLabelPrefix string
	// Algorithm defaults to ES256.
	Algorithm cose.Algorithm
	BlockSize uint64
	AdataSize int
}

type TestContext struct {
	T      *testing.T
	Log    logger.Logger
	Key    *ecdsa.PrivateKey
	Signer *signer.Signer
	Object *metastore.MemoryObject
	Cfg    TestConfig
}

func NewTestContext(t *testing.T, cfg TestConfig) TestContext {
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)

	if cfg.Algorithm == 0 {
		cfg.Algorithm = cose.AlgorithmES256
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.AdataSize == 0 {
		cfg.AdataSize = DefaultAdataSize
	}

	key, err := signer.Generate(cfg.Algorithm)
	require.NoError(t, err)
	s, err := signer.New(cfg.Algorithm, key)
	require.NoError(t, err)

	return TestContext{
		T:      t,
		Log:    logger.Sugar.WithServiceName(cfg.TestLabelPrefix),
		Key:    key,
		Signer: s,
		Object: metastore.NewMemoryObject(),
		Cfg:    cfg,
	}
}

func (c *TestContext) GetLog() logger.Logger { return c.Log }

// BlockData returns the content of block leaf as written by generation gen.
func (c *TestContext) BlockData(leaf uint64, gen int) []byte {
	return BlockData(leaf, gen, int(c.Cfg.BlockSize))
}

// Adata returns additional data of the configured size for block leaf.
func (c *TestContext) Adata(leaf uint64, gen int) []byte {
	return Adata(leaf, gen, c.Cfg.AdataSize)
}

// Corrupt flips the bits of one byte of the metadata object.
func (c *TestContext) Corrupt(off int64) {
	b := c.Object.Bytes()
	require.Less(c.T, off, int64(len(b)))
	b[off] ^= 0xff
	c.Object.SetBytes(b)
}

// OtherSigner returns a signer with a fresh key of the same algorithm.
func (c *TestContext) OtherSigner() *signer.Signer {
	key, err := signer.Generate(c.Cfg.Algorithm)
	require.NoError(c.T, err)
	s, err := signer.New(c.Cfg.Algorithm, key)
	require.NoError(c.T, err)
	return s
}

// BlockData derives size bytes of content from the block number and the
// generation so that every rewrite of a block is distinct.
func BlockData(leaf uint64, gen int, size int) []byte {
	out := make([]byte, 0, size+sha256.Size)
	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], leaf)
	binary.BigEndian.PutUint64(seed[8:], uint64(gen))
	for counter := uint32(0); len(out) < size; counter++ {
		h := sha256.New()
		h.Write(seed[:])
		h.Write(binary.BigEndian.AppendUint32(nil, counter))
		out = h.Sum(out)
	}
	return out[:size]
}

func Adata(leaf uint64, gen int, size int) []byte {
	return BlockData(leaf, -1-gen, size)
}
