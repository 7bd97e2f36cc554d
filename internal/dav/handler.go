// Package dav serves the read-only CardDAV surface over HTTP: discovery via
// PROPFIND, card retrieval via GET and addressbook-multiget, and explicit
// rejection of every mutating method.
package dav

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"supadav/internal/auth"
	"supadav/internal/rights"
	"supadav/internal/storage"
	xmlh "supadav/internal/xml"
)

const (
	headerDAV   = "DAV"
	headerAllow = "Allow"
	headerETag  = "ETag"

	davCapabilities = "1, 3, addressbook"
	allowedMethods  = "OPTIONS, GET, HEAD, PROPFIND, REPORT, PUT, DELETE, MKCOL, MOVE"

	mimeTypeVCard = "text/vcard; charset=utf-8"
	mimeTypeXML   = "application/xml; charset=utf-8"
)

// Handler is the CardDAV HTTP handler. It expects auth.Middleware upstream;
// requests reaching it carry a principal in the context (or none, in which
// case the access gate grants nothing).
type Handler struct {
	prefix   string
	store    *storage.Storage
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxDepth caps the Depth header; "infinity" is clamped to it.
func WithMaxDepth(depth int) Option {
	return func(h *Handler) {
		if depth > 0 {
			h.maxDepth = depth
		}
	}
}

// New creates a Handler serving under the given URL prefix.
func New(prefix string, store *storage.Storage, opts ...Option) *Handler {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	h := &Handler{
		prefix:   prefix,
		store:    store,
		maxDepth: 1,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prefix returns the normalized URL prefix.
func (h *Handler) Prefix() string { return h.prefix }

// ServeWellKnown redirects /.well-known/carddav to the served prefix.
func (h *Handler) ServeWellKnown(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.prefix, http.StatusMovedPermanently)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := h.stripPrefix(r.URL.Path)

	identity := ""
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		identity = p.ID
	}
	grant := rights.Authorization(identity, path)

	logger := h.logger.With(
		"request_id", uuid.NewString(),
		"method", r.Method,
		"path", path,
		"user", identity)
	logger.Debug("handling request")

	w.Header().Set(headerDAV, davCapabilities)
	w.Header().Set(headerAllow, allowedMethods)

	switch r.Method {
	case "OPTIONS":
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		h.handleGet(w, r, path, grant, logger)
	case "PROPFIND":
		h.handlePropfind(w, r, path, identity, grant, logger)
	case "REPORT":
		h.handleReport(w, r, path, grant, logger)
	case http.MethodPut:
		h.sendError(w, h.store.Upload(path), logger)
	case http.MethodDelete:
		h.sendError(w, h.store.Delete(path), logger)
	case "MOVE":
		h.sendError(w, h.store.Move(path, r.Header.Get("Destination")), logger)
	case "MKCOL":
		h.handleMkcol(w, path, logger)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleMkcol(w http.ResponseWriter, path string, logger *slog.Logger) {
	if err := h.store.CreateCollection(path); err != nil {
		h.sendError(w, err, logger)
		return
	}
	// Principal containers are virtual; creation succeeds without storage.
	w.WriteHeader(http.StatusCreated)
}

// stripPrefix removes the handler prefix, keeping a leading slash.
func (h *Handler) stripPrefix(urlPath string) string {
	rel := strings.TrimPrefix(urlPath, strings.TrimSuffix(h.prefix, "/"))
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}

// parseDepth reads the Depth header; missing defaults to 0, infinity and
// oversized values clamp to the configured maximum.
func (h *Handler) parseDepth(r *http.Request) int {
	depth := r.Header.Get("Depth")
	switch depth {
	case "":
		return 0
	case "infinity":
		return h.maxDepth
	default:
		n, err := strconv.Atoi(depth)
		if err != nil || n < 0 {
			return 0
		}
		return min(n, h.maxDepth)
	}
}

// sendError maps the error taxonomy onto status codes. A nil error means
// the operation already succeeded silently.
func (h *Handler) sendError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, storage.ErrPermissionDenied):
		logger.Info("mutation rejected", "reason", err)
		h.writeDAVError(w, http.StatusForbidden, &xmlh.Error{
			Namespace: xmlh.DAV,
			Tag:       "cannot-modify-protected-property",
			Message:   err.Error(),
		}, logger)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrStorageUnavailable):
		logger.Error("remote store unavailable", "error", err)
		http.Error(w, "remote store unavailable", http.StatusBadGateway)
	default:
		logger.Error("internal error", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeDAVError sends a D:error body carrying the precondition tag and the
// rejection reason.
func (h *Handler) writeDAVError(w http.ResponseWriter, status int, davErr *xmlh.Error, logger *slog.Logger) {
	w.Header().Set("Content-Type", mimeTypeXML)
	w.WriteHeader(status)
	if _, err := davErr.ToXML().WriteTo(w); err != nil {
		logger.Error("writing error response", "error", err)
	}
}
