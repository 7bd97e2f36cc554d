package dav

import (
	"log/slog"
	"net/http"

	"supadav/internal/rights"
	"supadav/internal/storage"
)

// handleGet serves one encoded card with its cache validators. HEAD shares
// the logic, minus the body.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, path, grant string, logger *slog.Logger) {
	if !rights.Can(grant, rights.ReadItem) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	rp := storage.ParseResourcePath(path)
	if rp.Type != storage.ResourceObject {
		http.Error(w, "GET is only supported on contact resources", http.StatusMethodNotAllowed)
		return
	}

	book, err := h.store.OpenCollection(r.Context(), path)
	if err != nil {
		h.sendError(w, err, logger)
		return
	}

	card, ok := book.Get(rp.UID)
	if !ok {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeTypeVCard)
	w.Header().Set(headerETag, card.ETag)
	if !card.LastModified.IsZero() {
		w.Header().Set("Last-Modified", card.LastModified.UTC().Format(http.TimeFormat))
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(card.Text))
}
