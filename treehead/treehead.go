// Package treehead exports the state committed to by a hash tree root as a
// COSE Sign1 message that can be published and checked without access to the
// metadata object's own signing scheme.
package treehead

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/veraison/go-cose"
)

var (
	ErrTreeNotInitialised = errors.New("the hash tree does not exist")
	ErrRootMissing        = errors.New("the tree head has no root, it must be supplied before verification")
	ErrNoPublicKey        = errors.New("a public key is required to export tree heads")
)

// TreeHead is the signed commitment to one version of a hash tree.
type TreeHead struct {
	// Version is the root version. It increases with every flush, so two
	// heads with equal versions for the same object must be identical.
	Version  uint64 `cbor:"1,keyasint"`
	FileSize uint64 `cbor:"2,keyasint"`
	// MaxLeaf is implied by FileSize and the block size. It is included so
	// that a verifier does not need the tree configuration to interpret the
	// head.
	MaxLeaf int64  `cbor:"3,keyasint"`
	Root    []byte `cbor:"4,keyasint"`
	// Timestamp is the unix time in milliseconds at which the head was signed.
	Timestamp int64 `cbor:"5,keyasint"`
}

// FromTree returns the head of an initialised tree.
func FromTree(tr *hashtree.Tree, timestamp int64) (TreeHead, error) {
	if !tr.Exists() {
		return TreeHead{}, ErrTreeNotInitialised
	}
	return TreeHead{
		Version:   tr.Version(),
		FileSize:  tr.FileSize(),
		MaxLeaf:   tr.MaxLeaf(),
		Root:      tr.RootHash(),
		Timestamp: timestamp,
	}, nil
}

// detached returns the head as published, without its root.
func (h TreeHead) detached() TreeHead {
	h.Root = nil
	return h
}

// Codec encodes tree heads with deterministic CBOR, so that a head with its
// root restored encodes to exactly the bytes that were signed. The zero value
// is not usable, use NewCodec.
type Codec struct {
	cbor dtcbor.CBORCodec
}

func NewCodec() (Codec, error) {
	c, err := dtcbor.NewCBORCodec(dtcbor.NewDeterministicEncOpts(), dtcbor.NewDeterministicDecOpts())
	if err != nil {
		return Codec{}, err
	}
	return Codec{cbor: c}, nil
}

// Exporter signs tree heads for one key. The public key travels in the CWT
// confirmation claim of every message.
type Exporter struct {
	codec  Codec
	issuer string
	kid    string
	signer cose.Signer
	public *ecdsa.PublicKey
}

func NewExporter(codec Codec, issuer, kid string, signer cose.Signer, public *ecdsa.PublicKey) (*Exporter, error) {
	if public == nil {
		return nil, ErrNoPublicKey
	}
	return &Exporter{codec: codec, issuer: issuer, kid: kid, signer: signer, public: public}, nil
}

// Export signs head for subject and returns the encoded message. The
// signature covers the root but the published payload omits it.
func (e *Exporter) Export(subject string, head TreeHead, external []byte) ([]byte, error) {
	signed, err := e.codec.cbor.MarshalCBOR(head)
	if err != nil {
		return nil, err
	}
	claims := dtcose.NewCNFClaim(e.issuer, subject, e.kid, e.signer.Algorithm(), *e.public)
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{dtcose.HeaderLabelCWTClaims: claims},
		},
		Payload: signed,
	}
	if err := msg.Sign(rand.Reader, external, e.signer); err != nil {
		return nil, err
	}
	if msg.Payload, err = e.codec.cbor.MarshalCBOR(head.detached()); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}
