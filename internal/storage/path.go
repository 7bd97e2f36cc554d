package storage

import (
	"strings"
)

// AddressBookSegment is the fixed last path segment of every address book
// collection.
const AddressBookSegment = "contacts.vcf"

// ResourceType is the kind of resource a request path refers to.
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	ResourceRoot
	ResourcePrincipal
	ResourceAddressBook
	ResourceObject
)

// String provides a human-readable representation of the ResourceType.
func (rt ResourceType) String() string {
	switch rt {
	case ResourceRoot:
		return "root"
	case ResourcePrincipal:
		return "principal"
	case ResourceAddressBook:
		return "addressbook"
	case ResourceObject:
		return "object"
	default:
		return "unknown"
	}
}

// ResourcePath is a parsed request path.
type ResourcePath struct {
	Type ResourceType
	// Principal is the user-scoped prefix, empty for the root book.
	Principal string
	// UID is the contact identifier for object paths.
	UID string
}

// CollectionPath returns the canonical address book path the parsed path
// resolves to: root and principal paths both point at a nested book.
func (rp ResourcePath) CollectionPath() string {
	if rp.Principal == "" {
		return "/" + AddressBookSegment + "/"
	}
	return "/" + rp.Principal + "/" + AddressBookSegment + "/"
}

// ParseResourcePath classifies a slash-delimited request path. Unrecognized
// shapes come back as ResourceUnknown rather than an error; an unmatched
// path is a normal not-found outcome.
func ParseResourcePath(path string) ResourcePath {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ResourcePath{Type: ResourceRoot}
	}

	parts := strings.Split(trimmed, "/")
	last := parts[len(parts)-1]

	if last == AddressBookSegment {
		return ResourcePath{
			Type:      ResourceAddressBook,
			Principal: strings.Join(parts[:len(parts)-1], "/"),
		}
	}

	if len(parts) >= 2 && parts[len(parts)-2] == AddressBookSegment && strings.HasSuffix(last, ".vcf") {
		uid := strings.TrimSuffix(last, ".vcf")
		if uid == "" {
			return ResourcePath{Type: ResourceUnknown}
		}
		return ResourcePath{
			Type:      ResourceObject,
			Principal: strings.Join(parts[:len(parts)-2], "/"),
			UID:       uid,
		}
	}

	// A lone segment is a user principal container; CardDAV clients often
	// address it before discovering the nested address book.
	if len(parts) == 1 {
		return ResourcePath{Type: ResourcePrincipal, Principal: parts[0]}
	}

	return ResourcePath{Type: ResourceUnknown}
}
