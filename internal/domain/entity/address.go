package entity

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidAddress is returned for any string that is not "0x" followed by
// exactly 40 hex digits. Validation happens before any network call is made.
var ErrInvalidAddress = errors.New("invalid address: expected 0x followed by 40 hex characters")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress checks the syntactic form of an EVM address. The check is
// case-insensitive and does not verify the EIP-55 checksum.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}
