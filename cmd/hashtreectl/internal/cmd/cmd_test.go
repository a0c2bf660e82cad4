package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/datatrails/go-datatrails-hashtree/hashtreetesting"
	"github.com/datatrails/go-datatrails-hashtree/treehead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

const (
	testBlockSize = 64
	testAdataSize = 16
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// initDir runs init in a fresh directory and returns it with the path of
// the configuration file.
func initDir(t *testing.T, extra ...string) (*fs.Dir, string) {
	t.Helper()
	dir := fs.NewDir(t, "hashtreectl")
	t.Cleanup(dir.Remove)
	args := append([]string{
		"init", "--dir", dir.Path(),
		"--block-size", "64", "--adata-size", "16",
	}, extra...)
	_, err := execute(t, args...)
	require.NoError(t, err)
	return dir, dir.Join(defaultConfigFile)
}

// writeLeaves writes leaves [0, count) through the configured store.
func writeLeaves(t *testing.T, configFile string, count uint64) {
	t.Helper()
	ctx := context.Background()
	conf, err := LoadConfig(configFile)
	require.NoError(t, err)
	logger.New("NOOP")
	defer logger.OnExit()

	tr, err := openTree(ctx, logger.Sugar.WithServiceName(t.Name()), conf)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.StartWrite(ctx, 0, true, count-1, true, true))
	for leaf := uint64(0); leaf < count; leaf++ {
		require.NoError(t, tr.SetLeaf(leaf,
			hashtreetesting.Adata(leaf, 0, testAdataSize),
			hashtreetesting.BlockData(leaf, 0, testBlockSize)))
	}
	tr.SetFileSize(count * testBlockSize)
	require.NoError(t, tr.FinishWrite(ctx))
}

func TestInit(t *testing.T) {
	dir, configFile := initDir(t)

	conf, err := LoadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, uint64(testBlockSize), conf.BlockSize)
	assert.Equal(t, testAdataSize, conf.AdataSize)
	assert.Equal(t, hashtree.PolicyLocks, conf.Policy)
	assert.Equal(t, StoreFile, conf.Store.Kind)

	info, err := os.Stat(dir.Join(defaultKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = execute(t, "init", "--dir", dir.Path())
	assert.ErrorIs(t, err, ErrConfigExists)
	_, err = execute(t, "init", "--dir", dir.Path(), "--force", "--store", "tape")
	assert.ErrorIs(t, err, ErrStoreKind)
}

func TestInspect(t *testing.T) {
	_, configFile := initDir(t)

	out, err := execute(t, "inspect", "-c", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "does not exist")

	writeLeaves(t, configFile, 5)
	out, err = execute(t, "inspect", "-c", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "version:     1\n")
	assert.Contains(t, out, "max leaf:    4\n")
	assert.Contains(t, out, "file size:   320\n")
	assert.Contains(t, out, "policy:      locks\n")
}

func TestInitCreate(t *testing.T) {
	tests := []struct {
		name  string
		store string
	}{
		{"file", StoreFile},
		{"leveldb", StoreLevelDB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, configFile := initDir(t, "--store", tt.store, "--create")

			out, err := execute(t, "inspect", "-c", configFile)
			require.NoError(t, err)
			assert.Contains(t, out, "version:     1\n")
			assert.Contains(t, out, "max leaf:    -1\n")

			writeLeaves(t, configFile, 3)
			out, err = execute(t, "verify", "-c", configFile)
			require.NoError(t, err)
			assert.Contains(t, out, "ok: version 2, max leaf 2")
		})
	}
}

func TestVerify_Tampered(t *testing.T) {
	dir, configFile := initDir(t)
	writeLeaves(t, configFile, 4)

	_, err := execute(t, "verify", "-c", configFile)
	require.NoError(t, err)

	l := hashtree.Layout{DigestSize: 32, AdataSize: testAdataSize, SignatureSize: 64}
	path := dir.Join("tree.meta")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[l.RootSize()+l.LeafSize()-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = execute(t, "verify", "-c", configFile)
	assert.ErrorIs(t, err, hashtree.ErrIntegrity)
}

func TestExportHead(t *testing.T) {
	dir, configFile := initDir(t)
	writeLeaves(t, configFile, 6)

	out := dir.Join("head.cbor")
	_, err := execute(t, "export-head", "-c", configFile, "-o", out, "--subject", "file-1")
	require.NoError(t, err)

	msg, err := os.ReadFile(out)
	require.NoError(t, err)
	codec, err := treehead.NewCodec()
	require.NoError(t, err)
	signed, head, err := codec.Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.Version)
	assert.Equal(t, int64(5), head.MaxLeaf)

	conf, err := LoadConfig(configFile)
	require.NoError(t, err)
	logger.New("NOOP")
	defer logger.OnExit()
	tr, err := openTree(context.Background(), logger.Sugar.WithServiceName(t.Name()), conf)
	require.NoError(t, err)
	defer tr.Close()

	keys := dtcose.NewCWTPublicKeyProvider(signed)
	assert.NoError(t, codec.VerifyTree(keys, signed, head, tr.Tree))
}

func TestExportHead_NoTree(t *testing.T) {
	dir, configFile := initDir(t)
	_, err := execute(t, "export-head", "-c", configFile, "-o", dir.Join("head.cbor"))
	assert.ErrorIs(t, err, treehead.ErrTreeNotInitialised)
}

func TestLoadConfig(t *testing.T) {
	dir := fs.NewDir(t, "hashtreectl",
		fs.WithFile("good.toml", `
block_size = 512
adata_size = 32
digest = "sha512"
policy = "partial-cow"
algorithm = "ES384"
key_path = "keys/root.pem"

[store]
kind = "leveldb"
path = "db"
object_id = "0b9c5a4e-1f64-4d7a-9b1a-3f0b0d8c2e11"
page_size = 1024
`),
		fs.WithFile("bad-store.toml", "[store]\nkind = \"tape\"\n"),
		fs.WithFile("bad-digest.toml", "digest = \"md5\"\n"),
		fs.WithFile("bad-policy.toml", "policy = \"optimistic\"\n"),
	)
	defer dir.Remove()

	conf, err := LoadConfig(dir.Join("good.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint64(512), conf.BlockSize)
	assert.Equal(t, 32, conf.AdataSize)
	assert.Equal(t, hashtree.PolicyPartialCOW, conf.Policy)
	assert.Equal(t, dir.Join("keys", "root.pem"), conf.resolve(conf.KeyPath))
	assert.Equal(t, 1024, conf.Store.PageSize)
	assert.Equal(t, "INFO", conf.LogLevel, "unset values keep their defaults")

	_, err = LoadConfig(dir.Join("bad-store.toml"))
	assert.ErrorIs(t, err, ErrStoreKind)
	_, err = LoadConfig(dir.Join("bad-digest.toml"))
	assert.ErrorIs(t, err, hashtree.ErrDigestNotUsable)
	_, err = LoadConfig(dir.Join("bad-policy.toml"))
	assert.Error(t, err)
	_, err = LoadConfig(dir.Join("missing.toml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := fs.NewDir(t, "hashtreectl")
	defer dir.Remove()

	conf := defaultConfig()
	conf.Policy = hashtree.PolicyClient
	conf.Store.Kind = StoreAzurite
	conf.Store.Container = "trees"
	conf.Store.ObjectID = "0b9c5a4e-1f64-4d7a-9b1a-3f0b0d8c2e11"
	require.NoError(t, SaveConfig(dir.Join("c.toml"), conf))

	got, err := LoadConfig(dir.Join("c.toml"))
	require.NoError(t, err)
	assert.Equal(t, conf.Policy, got.Policy)
	assert.Equal(t, conf.Store, got.Store)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hashtreectl ")
}
