package metastore

import (
	"errors"
	"fmt"

	azStorageBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const (
	azblobBlobNotFound      = "BlobNotFound"
	azblobConditionNotMet   = "ConditionNotMet"
	azblobBlobAlreadyExists = "BlobAlreadyExists"
)

// AsStorageError returns the storage error carried by err, if the azure sdk
// produced it. Wrapped errors are searched.
func AsStorageError(err error) (azStorageBlob.StorageError, bool) {
	var ierr *azStorageBlob.InternalError
	if !errors.As(err, &ierr) || ierr == nil {
		return azStorageBlob.StorageError{}, false
	}
	serr := &azStorageBlob.StorageError{}
	if !ierr.As(&serr) {
		return azStorageBlob.StorageError{}, false
	}
	return *serr, true
}

// IsBlobNotFound is true if err is, or wraps, ErrBlobNotFound or the azure
// blob not found error.
func IsBlobNotFound(err error) bool {
	if errors.Is(err, ErrBlobNotFound) {
		return true
	}
	serr, ok := AsStorageError(err)
	return ok && serr.ErrorCode == azblobBlobNotFound
}

// wrapStorageError translates the azure errors the blob object acts on into
// the package errors. Other errors are returned as is.
func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	serr, ok := AsStorageError(err)
	if !ok {
		return err
	}
	switch serr.ErrorCode {
	case azblobBlobNotFound:
		return fmt.Errorf("%s: %w", err.Error(), ErrBlobNotFound)
	case azblobBlobAlreadyExists:
		return fmt.Errorf("%s: %w", err.Error(), ErrExistsOC)
	case azblobConditionNotMet:
		return fmt.Errorf("%s: %w", err.Error(), ErrContentOC)
	}
	return err
}
