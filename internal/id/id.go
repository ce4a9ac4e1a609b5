// Package id issues prefixed entity identifiers. The prefix disambiguates entity
// types when identifiers travel through logs and transaction metadata.
package id

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	PrefixMerchant    = "mrc"
	PrefixMember      = "mbr"
	PrefixMembership  = "mms"
	PrefixInvoice     = "inv"
	PrefixTransaction = "txn"
	PrefixSupply      = "sup"
)

// New returns a prefixed identifier, e.g. "inv_1792546291843072000".
func New(prefix string, node *snowflake.Node) string {
	return prefix + "_" + node.Generate().String()
}

// HasPrefix reports whether raw carries the given entity prefix.
func HasPrefix(raw, prefix string) bool {
	return strings.HasPrefix(raw, prefix+"_")
}
