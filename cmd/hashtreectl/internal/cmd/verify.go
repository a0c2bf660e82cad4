package cmd

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every node of the tree against the signed root",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	conf, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.OnExit()

	tr, err := openTree(cmd.Context(), log, conf)
	if err != nil {
		return err
	}
	defer tr.Close()

	if err := tr.VerifyAll(cmd.Context()); err != nil {
		return err
	}
	stats := tr.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "ok: version %d, max leaf %d, %d reads\n", tr.Version(), tr.MaxLeaf(), stats.Reads)
	return nil
}
