package hashtree

import "errors"

var (
	// ErrIntegrity is returned for any hash mismatch or root signature
	// failure. The tree discards its cache and must be re-initialised.
	ErrIntegrity = errors.New("hash tree integrity check failed")

	// ErrInvalidState is returned when an operation is attempted in a state
	// that does not permit it.
	ErrInvalidState = errors.New("hash tree operation not valid in the current state")
)

var (
	ErrFaulted          = errors.New("the tree faulted previously, Init must be called again")
	ErrNotInitialised   = errors.New("Init has not been called")
	ErrLeafNotLoaded    = errors.New("the leaf was not loaded by a Start call")
	ErrNodeNotLoaded    = errors.New("a node required to update the tree was not loaded")
	ErrLeafOutOfRange   = errors.New("the leaf is outside the open write range")
	ErrAdataSize        = errors.New("the additional data is not the configured size")
	ErrTreeTooLarge     = errors.New("the maximum leaf number exceeds the supported tree height")
	ErrFileSize         = errors.New("the file size does not match the tree size")
	ErrSignatureSize    = errors.New("the signer produced a signature of the wrong size")
	ErrDigestNotUsable  = errors.New("the configured digest is not available")
	ErrPolicyNotKnown   = errors.New("the concurrency policy is not known")
	ErrRootSignature    = errors.New("the root signature did not verify")
	ErrRootHashMismatch = errors.New("the root hash does not match its children")
	ErrNodeHashMismatch = errors.New("a node hash does not match its children")
	ErrLeafHashMismatch = errors.New("the leaf hash does not match the block content")
)
