package treehead

import (
	"bytes"
	"crypto"
	"fmt"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/veraison/go-cose"
)

type publicKeyProvider interface {
	PublicKey() (crypto.PublicKey, cose.Algorithm, error)
}

// Decode returns the message and the head it carries. The head has no root
// and does not verify until one is supplied.
func (c Codec) Decode(msg []byte) (*dtcose.CoseSign1Message, TreeHead, error) {
	signed, err := dtcose.NewCoseSign1MessageFromCBOR(
		msg, dtcose.WithDecOptions(dtcbor.NewDeterministicDecOpts()))
	if err != nil {
		return nil, TreeHead{}, err
	}
	var head TreeHead
	if err = c.cbor.UnmarshalInto(signed.Payload, &head); err != nil {
		return nil, TreeHead{}, err
	}
	return signed, head, nil
}

// Verify restores the signed payload from head, which must carry the root,
// and checks the signature.
//
// Verifying a published head against a metadata object:
//  1. Decode the message to obtain the head without its root.
//  2. Initialise a hash tree over the object and compare its version, file
//     size and max leaf with the head.
//  3. Take the root from the tree and call Verify. VerifyTree does 2 and 3.
func (c Codec) Verify(keys publicKeyProvider, signed *dtcose.CoseSign1Message, head TreeHead, external []byte) error {
	if len(head.Root) == 0 {
		return ErrRootMissing
	}
	payload, err := c.cbor.MarshalCBOR(head)
	if err != nil {
		return err
	}
	signed.Payload = payload
	return signed.VerifyWithProvider(keys, external)
}

// VerifyTree checks a decoded head against an initialised tree.
func (c Codec) VerifyTree(keys publicKeyProvider, signed *dtcose.CoseSign1Message, head TreeHead, tr *hashtree.Tree) error {
	if !tr.Exists() {
		return ErrTreeNotInitialised
	}
	if head.Version != tr.Version() || head.FileSize != tr.FileSize() || head.MaxLeaf != tr.MaxLeaf() {
		return fmt.Errorf(
			"%w: head version %d size %d max leaf %d, tree version %d size %d max leaf %d",
			hashtree.ErrIntegrity,
			head.Version, head.FileSize, head.MaxLeaf,
			tr.Version(), tr.FileSize(), tr.MaxLeaf())
	}
	if len(head.Root) != 0 && !bytes.Equal(head.Root, tr.RootHash()) {
		return fmt.Errorf("%w: head root differs from the tree", hashtree.ErrIntegrity)
	}
	head.Root = tr.RootHash()
	return c.Verify(keys, signed, head, nil)
}
