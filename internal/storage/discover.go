package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"supadav/internal/vcard"
)

// collectionETag is the fixed fingerprint for collection descriptors; the
// collection itself has no content of its own to hash.
const collectionETag = "collection"

// Storage resolves request paths to address book collections and items.
type Storage struct {
	source  ContactSource
	encoder *vcard.Encoder
	logger  *slog.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEncoder overrides the card encoder.
func WithEncoder(enc *vcard.Encoder) Option {
	return func(s *Storage) {
		if enc != nil {
			s.encoder = enc
		}
	}
}

// New creates a Storage backed by the given contact source.
func New(source ContactSource, opts ...Option) *Storage {
	s := &Storage{
		source: source,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.encoder == nil {
		s.encoder = vcard.NewEncoder(vcard.WithLogger(s.logger))
	}
	return s
}

// OpenCollection materializes the address book the path resolves to.
// Object paths open their enclosing collection. ErrNotFound for paths that
// don't resolve to a collection.
func (s *Storage) OpenCollection(ctx context.Context, path string) (*AddressBook, error) {
	rp := ParseResourcePath(path)
	if rp.Type == ResourceUnknown {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return NewAddressBook(ctx, rp.CollectionPath(), s.source, s.encoder, s.logger)
}

// Discover resolves a path plus traversal depth into descriptors. Depth
// zero describes the collection only; nonzero adds one item descriptor per
// contact. An unrecognized path yields an empty slice and no error. Every
// resolved collection triggers exactly one remote fetch.
func (s *Storage) Discover(ctx context.Context, path string, depth int) ([]Descriptor, error) {
	rp := ParseResourcePath(path)

	switch rp.Type {
	case ResourceRoot, ResourcePrincipal:
		// Root and principal containers both describe the nested book,
		// normalized to its canonical path.
		book, err := NewAddressBook(ctx, rp.CollectionPath(), s.source, s.encoder, s.logger)
		if err != nil {
			return nil, err
		}
		return []Descriptor{{
			Path:       book.Path(),
			ETag:       collectionETag,
			Collection: book,
		}}, nil

	case ResourceAddressBook:
		book, err := NewAddressBook(ctx, rp.CollectionPath(), s.source, s.encoder, s.logger)
		if err != nil {
			return nil, err
		}
		descriptors := []Descriptor{{
			Path:       book.Path(),
			ETag:       collectionETag,
			Collection: book,
		}}
		if depth > 0 {
			for _, card := range book.GetAll() {
				item := card
				descriptors = append(descriptors, Descriptor{
					Path: book.Path() + item.UID + ".vcf",
					ETag: item.ETag,
					Item: &item,
				})
			}
		}
		return descriptors, nil

	default:
		s.logger.Debug("path did not resolve", "path", path)
		return nil, nil
	}
}

// CreateCollection accepts principal container creation as a no-op; those
// containers are virtual and not backed by storage. Anything else is a
// mutation of the remote store and is rejected.
func (s *Storage) CreateCollection(path string) error {
	if ParseResourcePath(path).Type == ResourcePrincipal {
		return nil
	}
	return fmt.Errorf("%w: creating collections is not supported", ErrPermissionDenied)
}

// Upload is never permitted. It rejects without touching the remote store,
// so a denial can't be masked by a fetch failure.
func (s *Storage) Upload(string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonUpload)
}

// Delete is never permitted.
func (s *Storage) Delete(string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonDelete)
}

// Move is never permitted.
func (s *Storage) Move(string, string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reasonMove)
}
