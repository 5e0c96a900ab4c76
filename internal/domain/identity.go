package domain

import "github.com/ethereum/go-ethereum/common"

// shortKeyLen is the prefix length used for compact address display.
const shortKeyLen = 4

// IsValidKey reports whether key is a wallet address in the form the feed
// uses: exactly 40 hex characters, no 0x prefix.
func IsValidKey(key string) bool {
	return len(key) == 2*common.AddressLength && common.IsHexAddress(key)
}

// ShortKey returns the 4-character display prefix of a user key.
func ShortKey(key string) string {
	if len(key) < shortKeyLen {
		return key
	}
	return key[:shortKeyLen]
}
