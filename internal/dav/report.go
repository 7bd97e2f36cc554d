package dav

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/beevik/etree"

	"supadav/internal/rights"
	"supadav/internal/storage"
	"supadav/internal/vcard"
	xmlh "supadav/internal/xml"
)

// handleReport answers addressbook-multiget: one fetch for the enclosing
// collection, then a per-href 200 or 404 in the multistatus. An href absent
// from the book is a normal outcome for that one entry and never aborts the
// batch.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, path, grant string, logger *slog.Logger) {
	if !rights.Can(grant, rights.ReadItem) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r.Body); err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req xmlh.MultigetRequest
	if err := req.Parse(doc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.store.OpenCollection(r.Context(), path)
	if err != nil {
		h.sendError(w, err, logger)
		return
	}

	wantAddressData := len(req.Prop) == 0
	wantETag := len(req.Prop) == 0
	for _, name := range req.Prop {
		switch name {
		case xmlh.TagAddressData:
			wantAddressData = true
		case "getetag":
			wantETag = true
		}
	}

	response := xmlh.MultistatusResponse{}
	for _, href := range req.Hrefs {
		// Some clients send absolute URIs; match on the path component.
		target := href
		if u, err := url.Parse(href); err == nil && u.Path != "" {
			target = u.Path
		}
		rp := storage.ParseResourcePath(h.stripPrefix(target))

		var card vcard.EncodedCard
		found := false
		if rp.Type == storage.ResourceObject {
			card, found = book.Get(rp.UID)
		}
		if !found {
			response.Responses = append(response.Responses, xmlh.Response{
				Href:   href,
				Status: xmlh.StatusNotFound,
			})
			continue
		}

		var props []xmlh.Property
		if wantETag {
			props = append(props, xmlh.Property{Name: "getetag", TextContent: card.ETag})
		}
		if wantAddressData {
			props = append(props, xmlh.Property{
				Name:        xmlh.TagAddressData,
				Namespace:   xmlh.CardDAV,
				TextContent: card.Text,
			})
		}
		response.Responses = append(response.Responses, xmlh.Response{
			Href:      href,
			PropStats: []xmlh.PropStat{{Props: props, Status: xmlh.StatusOK}},
		})
	}

	h.writeMultistatus(w, &response, logger)
	logger.Debug("multiget answered", "hrefs", len(req.Hrefs))
}
