// Package signer provides the root signers used by the hash tree. Roots are
// signed with the raw COSE algorithms of go-cose so that the signature has a
// fixed size for the chosen algorithm.
package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/veraison/go-cose"
)

var (
	ErrAlgorithmNotSupported = errors.New("signing algorithm not supported")
	ErrVerifyOnly            = errors.New("signer has no private key")
	ErrKeyMismatch           = errors.New("key does not suit the algorithm")
)

// signatureSizes are the fixed sizes of the raw signatures go-cose produces.
var signatureSizes = map[cose.Algorithm]int{
	cose.AlgorithmES256: 64,
	cose.AlgorithmES384: 96,
	cose.AlgorithmES512: 132,
}

var curves = map[cose.Algorithm]elliptic.Curve{
	cose.AlgorithmES256: elliptic.P256(),
	cose.AlgorithmES384: elliptic.P384(),
	cose.AlgorithmES512: elliptic.P521(),
}

// Signer signs and verifies tree roots with one key.
type Signer struct {
	alg      cose.Algorithm
	signer   cose.Signer
	verifier cose.Verifier
	public   crypto.PublicKey
	rand     io.Reader
}

// Option configures a Signer.
type Option func(*Signer)

// WithRand replaces the source of randomness used for signing.
func WithRand(r io.Reader) Option {
	return func(s *Signer) { s.rand = r }
}

// New returns a Signer for the private key.
func New(alg cose.Algorithm, key crypto.Signer, opts ...Option) (*Signer, error) {
	if _, ok := signatureSizes[alg]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrAlgorithmNotSupported, alg)
	}
	s, err := cose.NewSigner(alg, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	v, err := cose.NewVerifier(alg, key.Public())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	sg := &Signer{alg: alg, signer: s, verifier: v, public: key.Public(), rand: rand.Reader}
	for _, o := range opts {
		o(sg)
	}
	return sg, nil
}

// NewVerifier returns a Signer that can only verify. Sign fails with
// ErrVerifyOnly.
func NewVerifier(alg cose.Algorithm, pub crypto.PublicKey) (*Signer, error) {
	if _, ok := signatureSizes[alg]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrAlgorithmNotSupported, alg)
	}
	v, err := cose.NewVerifier(alg, pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	return &Signer{alg: alg, verifier: v, public: pub}, nil
}

// Generate creates a fresh ECDSA key on the curve the algorithm requires.
func Generate(alg cose.Algorithm) (*ecdsa.PrivateKey, error) {
	curve, ok := curves[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrAlgorithmNotSupported, alg)
	}
	return ecdsa.GenerateKey(curve, rand.Reader)
}

func (s *Signer) Algorithm() cose.Algorithm  { return s.alg }
func (s *Signer) PublicKey() crypto.PublicKey { return s.public }
func (s *Signer) SignatureSize() int          { return signatureSizes[s.alg] }

func (s *Signer) Sign(content []byte) ([]byte, error) {
	if s.signer == nil {
		return nil, ErrVerifyOnly
	}
	return s.signer.Sign(s.rand, content)
}

func (s *Signer) Verify(content, signature []byte) error {
	return s.verifier.Verify(content, signature)
}

// CoseSigner returns the underlying go-cose signer, for producing COSE
// messages with the same key. It is nil for a verify only Signer.
func (s *Signer) CoseSigner() cose.Signer { return s.signer }
