package cmd

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-hashtree/treehead"
	"github.com/spf13/cobra"
)

var ErrKeyNotECDSA = errors.New("tree heads can only be signed with an ECDSA key")

func newExportHeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-head",
		Short: "Write the root as a signed COSE Sign1 tree head",
		Long: `Write the root as a signed COSE Sign1 tree head.

The head carries a CWT confirmation claim holding the public key, the
root hash itself is detached. A verifier recomputes it from the metadata
object.`,
		Args: cobra.NoArgs,
		RunE: runExportHead,
	}
	flags := cmd.Flags()
	flags.StringP("out", "o", "head.cbor", "Output file")
	flags.String("issuer", serviceName, "CWT issuer")
	flags.String("kid", "root", "Key identifier")
	flags.String("subject", "", "CWT subject, defaults to the object name")
	return cmd
}

func runExportHead(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	out, _ := flags.GetString("out")
	issuer, _ := flags.GetString("issuer")
	kid, _ := flags.GetString("kid")
	subject, _ := flags.GetString("subject")

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

	head, err := treehead.FromTree(tr.Tree, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	sg, err := conf.loadSigner()
	if err != nil {
		return err
	}
	pub, ok := sg.PublicKey().(*ecdsa.PublicKey)
	if !ok {
		return ErrKeyNotECDSA
	}
	codec, err := treehead.NewCodec()
	if err != nil {
		return err
	}
	exporter, err := treehead.NewExporter(codec, issuer, kid, sg.CoseSigner(), pub)
	if err != nil {
		return err
	}
	if subject == "" {
		subject = tr.subject
	}
	msg, err := exporter.Export(subject, head, nil)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, msg, 0o644); err != nil {
		return err
	}
	log.Infof("exported tree head version %d to %s", head.Version, out)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
