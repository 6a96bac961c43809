package recordstore

import "strings"

// Role is the element a record key describes.
type Role string

// Roles, in the order the key prefixes are written.
const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
	RoleTransaction Role = "transaction"
)

// Key prefixes.
const (
	SourcePrefix      = string(RoleSource) + "."
	DestinationPrefix = string(RoleDestination) + "."
	TransactionPrefix = string(RoleTransaction) + "."
)

// ID is the pseudo attribute carrying the id of an existing graph element.
const ID = "[id]"

// Common attribute names.
const (
	Identifier = "Identifier"
	Type       = "Type"
)

// Frequently used keys.
const (
	SourceID              = SourcePrefix + ID
	SourceIdentifier      = SourcePrefix + Identifier
	SourceType            = SourcePrefix + Type
	DestinationID         = DestinationPrefix + ID
	DestinationIdentifier = DestinationPrefix + Identifier
	DestinationType       = DestinationPrefix + Type
	TransactionID         = TransactionPrefix + ID
	TransactionType       = TransactionPrefix + Type
)

// Source returns the source key for attr.
func Source(attr string) string { return SourcePrefix + attr }

// Destination returns the destination key for attr.
func Destination(attr string) string { return DestinationPrefix + attr }

// Transaction returns the transaction key for attr.
func Transaction(attr string) string { return TransactionPrefix + attr }

// SplitKey separates a key into its role and attribute. ok is false for keys
// without a known role prefix or with an empty attribute.
func SplitKey(key string) (role Role, attr string, ok bool) {
	prefix, attr, found := strings.Cut(key, ".")
	if !found || attr == "" {
		return "", "", false
	}
	switch r := Role(prefix); r {
	case RoleSource, RoleDestination, RoleTransaction:
		return r, attr, true
	default:
		return "", "", false
	}
}
