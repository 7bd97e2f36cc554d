// Package storage maps the flat remote contacts table onto the CardDAV
// resource model: a single address book collection per principal, one .vcf
// item per contact row. The remote store is the sole source of truth; every
// mutation entry point here is a hard permission error.
package storage

import (
	"context"
	"errors"

	"supadav/internal/vcard"
)

var (
	// ErrNotFound is returned when a requested resource doesn't exist.
	ErrNotFound = errors.New("resource not found")
	// ErrPermissionDenied is returned for any attempted mutation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStorageUnavailable is returned when the remote store can't be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Mutation rejection reasons, surfaced verbatim to DAV clients.
const (
	reasonUpload = "contacts are synchronized from the remote store and cannot be modified here"
	reasonDelete = "contacts are synchronized from the remote store and cannot be deleted here"
	reasonMove   = "contacts are synchronized from the remote store and cannot be moved here"
)

// ContactSource fetches the full contact row set. Implemented by the
// Supabase client; swapped for a stub in tests.
type ContactSource interface {
	FetchContacts(ctx context.Context) ([]vcard.ContactRecord, error)
}

// Descriptor describes one discovered resource: either a collection or a
// leaf item, never both.
type Descriptor struct {
	// Path is the canonical resource path, e.g. "/contacts.vcf/" or
	// "/contacts.vcf/u1.vcf".
	Path string
	// ETag is the resource fingerprint.
	ETag string
	// Collection is set for collection descriptors.
	Collection *AddressBook
	// Item is set for leaf descriptors.
	Item *vcard.EncodedCard
}

// IsCollection reports whether the descriptor describes a collection.
func (d Descriptor) IsCollection() bool { return d.Collection != nil }
