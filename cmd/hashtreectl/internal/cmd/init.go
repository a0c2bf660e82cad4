package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/datatrails/go-datatrails-hashtree/metastore"
	"github.com/datatrails/go-datatrails-hashtree/signer"
	"github.com/spf13/cobra"
)

var ErrConfigExists = errors.New("the configuration file already exists")

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file, a root signing key and an empty tree",
		Long: `Create a configuration file and a root signing key in the given directory.

With --create an empty tree is also written to the configured store, so that
it can be inspected before any block is written.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	flags := cmd.Flags()
	flags.StringP("dir", "d", ".", "Directory for the generated files")
	flags.String("store", StoreFile, "Store kind: file, leveldb or azurite")
	flags.String("policy", hashtree.PolicyLocks.String(), "Concurrency policy")
	flags.String("algorithm", "ES256", "Root signature algorithm")
	flags.Uint64("block-size", hashtree.DefaultBlockSize, "Size of the block covered by one leaf")
	flags.Int("adata-size", 0, "Size of the additional data stored in each leaf")
	flags.Bool("create", false, "Write an empty tree")
	flags.Bool("force", false, "Overwrite an existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	storeKind, _ := flags.GetString("store")
	policyName, _ := flags.GetString("policy")
	algName, _ := flags.GetString("algorithm")
	blockSize, _ := flags.GetUint64("block-size")
	adataSize, _ := flags.GetInt("adata-size")
	create, _ := flags.GetBool("create")
	force, _ := flags.GetBool("force")

	policy, err := hashtree.ParsePolicy(policyName)
	if err != nil {
		return err
	}
	alg, err := signer.ParseAlgorithm(algName)
	if err != nil {
		return err
	}

	conf := defaultConfig()
	conf.path = filepath.Join(dir, defaultConfigFile)
	conf.Policy = policy
	conf.Algorithm = alg.String()
	conf.BlockSize = blockSize
	conf.AdataSize = adataSize
	conf.Store.Kind = storeKind
	switch storeKind {
	case StoreFile:
	case StoreLevelDB:
		conf.Store.Path = "tree.ldb"
		conf.Store.ObjectID = metastore.NewObjectID().String()
		conf.Store.PageSize = defaultPageSize
	case StoreAzurite:
		conf.Store.Path = ""
		conf.Store.ObjectID = metastore.NewObjectID().String()
		conf.Store.Container = "hashtrees"
	default:
		return fmt.Errorf("%w: %q", ErrStoreKind, storeKind)
	}

	if _, err := os.Stat(conf.path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, conf.path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	key, err := signer.Generate(alg)
	if err != nil {
		return err
	}
	if err := signer.WriteKeyFile(conf.resolve(conf.KeyPath), key); err != nil {
		return err
	}
	if err := SaveConfig(conf.path, conf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", conf.path)

	if !create {
		return nil
	}
	logger.New(conf.LogLevel)
	defer logger.OnExit()
	tr, err := openTree(cmd.Context(), logger.Sugar.WithServiceName(serviceName), conf)
	if err != nil {
		return err
	}
	defer tr.Close()
	if tr.Exists() {
		return nil
	}
	if err := tr.Flush(cmd.Context(), true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created an empty tree in %s\n", tr.subject)
	return nil
}
