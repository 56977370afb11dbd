package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_01HZX3Q7E1V4B6J9K2M5N8P0RT
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_CONTRACT        = "ctr"
	UUID_PREFIX_INVOICE         = "inv"
	UUID_PREFIX_PAYMENT_PROFILE = "pprof"
	UUID_PREFIX_RENEWAL_BATCH   = "renew"
)
