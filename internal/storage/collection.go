package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"supadav/internal/vcard"
)

// Collection-level metadata keys.
const (
	MetaTag         = "tag"
	MetaDisplayName = "displayname"

	// CollectionTag is the fixed collection type tag.
	CollectionTag = "VADDRESSBOOK"
)

// AddressBook owns the fetched-and-encoded record set for one collection,
// for the lifetime of a single discovery call. It is never mutated after
// construction and never written back.
type AddressBook struct {
	path        string
	displayName string
	order       []string // uids in fetch order
	items       map[string]vcard.EncodedCard
}

// NewAddressBook materializes the collection at the given canonical path:
// one unconditional remote fetch, every row encoded. A failed fetch fails
// construction outright; a partially populated book is never returned.
func NewAddressBook(ctx context.Context, path string, source ContactSource, enc *vcard.Encoder, logger *slog.Logger) (*AddressBook, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if enc == nil {
		enc = vcard.NewEncoder()
	}

	records, err := source.FetchContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	book := &AddressBook{
		path:        path,
		displayName: "Contacts",
		items:       make(map[string]vcard.EncodedCard, len(records)),
	}
	for _, rec := range records {
		if rec.UID == "" {
			logger.Warn("skipping contact row without uid", "display_name", rec.DisplayName)
			continue
		}
		card := enc.Encode(rec)
		book.items[rec.UID] = card
		book.order = append(book.order, rec.UID)
	}

	logger.Debug("address book materialized", "path", path, "items", len(book.order))
	return book, nil
}

// Path returns the collection's canonical path.
func (b *AddressBook) Path() string { return b.path }

// Get returns the card for one uid.
func (b *AddressBook) Get(uid string) (vcard.EncodedCard, bool) {
	card, ok := b.items[uid]
	return card, ok
}

// GetMulti returns the cards for the identifiers present in the book.
// Absent identifiers are skipped; absence is a normal not-found outcome for
// that one item and never aborts the batch. Identifiers may carry a ".vcf"
// suffix, as multiget hrefs do.
func (b *AddressBook) GetMulti(identifiers []string) []vcard.EncodedCard {
	var cards []vcard.EncodedCard
	for _, id := range identifiers {
		uid := strings.TrimSuffix(id, ".vcf")
		if card, ok := b.items[uid]; ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// GetAll returns every card in fetch order. The remote fetch requests
// ascending display name order; this must not re-sort.
func (b *AddressBook) GetAll() []vcard.EncodedCard {
	cards := make([]vcard.EncodedCard, 0, len(b.order))
	for _, uid := range b.order {
		cards = append(cards, b.items[uid])
	}
	return cards
}

// MetaAll returns every collection metadata entry.
func (b *AddressBook) MetaAll() map[string]string {
	return map[string]string{
		MetaTag:         CollectionTag,
		MetaDisplayName: b.displayName,
	}
}

// Meta returns the value of one collection metadata key.
func (b *AddressBook) Meta(key string) (string, bool) {
	switch key {
	case MetaTag:
		return CollectionTag, true
	case MetaDisplayName:
		return b.displayName, true
	default:
		return "", false
	}
}

// Upload rejects any attempt to create or modify a contact.
func (b *AddressBook) Upload(string, string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonUpload)
}

// Delete rejects any attempt to remove a contact.
func (b *AddressBook) Delete(string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonDelete)
}

// Move rejects any attempt to relocate a contact.
func (b *AddressBook) Move(string, string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonMove)
}
