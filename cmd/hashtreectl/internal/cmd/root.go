// Package cmd implements the hashtreectl commands.
package cmd

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
)

const serviceName = "hashtreectl"

// NewRootCmd returns the hashtreectl command with all its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hashtreectl",
		Short: "Inspect and verify authenticated hash tree metadata objects",
		Long: `hashtreectl operates on the metadata objects that authenticate the
blocks of an encrypted file. It can create an empty tree, print the signed
root, check every node against it and export the root as a COSE Sign1 tree
head.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigFile, "Path of the configuration file")

	root.AddCommand(
		newInitCmd(),
		newInspectCmd(),
		newVerifyCmd(),
		newExportHeadCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and starts the logger. The caller must call
// logger.OnExit once it is done.
func setup(cmd *cobra.Command) (*Config, logger.Logger, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	conf, err := LoadConfig(file)
	if err != nil {
		return nil, nil, err
	}
	logger.New(conf.LogLevel)
	return conf, logger.Sugar.WithServiceName(serviceName), nil
}
