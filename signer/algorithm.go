package signer

import (
	"fmt"
	"strings"

	"github.com/veraison/go-cose"
)

// ParseAlgorithm accepts the COSE algorithm names, case insensitively.
func ParseAlgorithm(name string) (cose.Algorithm, error) {
	switch strings.ToUpper(name) {
	case "", "ES256":
		return cose.AlgorithmES256, nil
	case "ES384":
		return cose.AlgorithmES384, nil
	case "ES512":
		return cose.AlgorithmES512, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrAlgorithmNotSupported, name)
}
