// Package rights grants capabilities per request. The policy is
// intentionally coarse: any authenticated identity gets everything, and
// real authorization is delegated to the remote store's own row level
// policies, which this server neither enforces nor inspects.
package rights

import "strings"

// Capability flags. A grant is a compact string over this alphabet.
const (
	ReadCollection  = 'r'
	ReadItem        = 'i'
	WriteCollection = 'w'
	WriteItem       = 'W'
)

// FullAccess is the grant for any authenticated identity.
const FullAccess = "riwW"

// Authorization returns the capability set granted to the identity for the
// path: the empty set for an absent identity, everything otherwise. The
// path does not influence the decision.
func Authorization(identity, path string) string {
	if identity == "" {
		return ""
	}
	return FullAccess
}

// Can reports whether a grant includes the given capability flag.
func Can(grant string, capability rune) bool {
	return strings.ContainsRune(grant, capability)
}
