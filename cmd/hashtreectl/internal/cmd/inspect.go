package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the verified root of the tree",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
}

func runInspect(cmd *cobra.Command, _ []string) error {
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

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "object:      %s\n", tr.subject)
	if !tr.Exists() {
		fmt.Fprintln(w, "tree:        does not exist")
		return nil
	}
	cfg := tr.Config()
	l := tr.Layout()
	fmt.Fprintf(w, "version:     %d\n", tr.Version())
	fmt.Fprintf(w, "file size:   %d\n", tr.FileSize())
	fmt.Fprintf(w, "max leaf:    %d\n", tr.MaxLeaf())
	fmt.Fprintf(w, "root hash:   %s\n", hex.EncodeToString(tr.RootHash()))
	fmt.Fprintf(w, "block size:  %d\n", cfg.BlockSize)
	fmt.Fprintf(w, "digest:      %v\n", cfg.Digest)
	fmt.Fprintf(w, "policy:      %v\n", cfg.Policy)
	fmt.Fprintf(w, "node sizes:  root %d, leaf %d, internal %d\n", l.RootSize(), l.LeafSize(), l.InternalSize())

	shape := tr.Shape()
	want := l.ObjectSize(&shape)
	if size, err := tr.size(); err == nil {
		fmt.Fprintf(w, "object size: %d (expected %d)\n", size, want)
	}
	return nil
}
