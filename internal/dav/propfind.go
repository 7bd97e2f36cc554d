package dav

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"

	"supadav/internal/rights"
	"supadav/internal/storage"
	xmlh "supadav/internal/xml"
)

// errPropNotFound marks a property absent on this resource; it becomes a
// 404 propstat, not a failed request.
var errPropNotFound = errors.New("property not found")

// resolver resolves one property for a discovered resource.
type resolver func(env *propEnv) mo.Result[xmlh.Property]

// propEnv carries what resolvers need about the resource at hand.
type propEnv struct {
	h        *Handler
	desc     storage.Descriptor
	identity string
}

var propResolvers = map[string]resolver{
	"resourcetype":           resolveResourcetype,
	"displayname":            resolveDisplayname,
	"getetag":                resolveGetetag,
	"getcontenttype":         resolveGetcontenttype,
	"getlastmodified":        resolveGetlastmodified,
	"current-user-principal": resolveCurrentUserPrincipal,
	"addressbook-home-set":   resolveAddressbookHomeSet,
	"supported-report-set":   resolveSupportedReportSet,
}

// allPropNames is the set served for allprop requests, in response order.
var allPropNames = []string{
	"resourcetype",
	"displayname",
	"getetag",
	"getcontenttype",
	"getlastmodified",
}

func resolveResourcetype(env *propEnv) mo.Result[xmlh.Property] {
	if !env.desc.IsCollection() {
		return mo.Ok(xmlh.Property{Name: xmlh.TagResourcetype})
	}
	return mo.Ok(xmlh.Property{
		Name: xmlh.TagResourcetype,
		Children: []xmlh.Property{
			{Name: xmlh.TagCollection},
			{Name: xmlh.TagAddressbook, Namespace: xmlh.CardDAV},
		},
	})
}

func resolveDisplayname(env *propEnv) mo.Result[xmlh.Property] {
	if !env.desc.IsCollection() {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	name, _ := env.desc.Collection.Meta(storage.MetaDisplayName)
	return mo.Ok(xmlh.Property{Name: "displayname", TextContent: name})
}

func resolveGetetag(env *propEnv) mo.Result[xmlh.Property] {
	if env.desc.IsCollection() {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{Name: "getetag", TextContent: env.desc.ETag})
}

func resolveGetcontenttype(env *propEnv) mo.Result[xmlh.Property] {
	if env.desc.IsCollection() {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{Name: "getcontenttype", TextContent: mimeTypeVCard})
}

func resolveGetlastmodified(env *propEnv) mo.Result[xmlh.Property] {
	if env.desc.IsCollection() || env.desc.Item.LastModified.IsZero() {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{
		Name:        "getlastmodified",
		TextContent: env.desc.Item.LastModified.UTC().Format(http.TimeFormat),
	})
}

func resolveCurrentUserPrincipal(env *propEnv) mo.Result[xmlh.Property] {
	if env.identity == "" {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{
		Name: "current-user-principal",
		Children: []xmlh.Property{
			{Name: xmlh.TagHref, TextContent: env.h.prefix + env.identity + "/"},
		},
	})
}

func resolveAddressbookHomeSet(env *propEnv) mo.Result[xmlh.Property] {
	if env.identity == "" {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{
		Name:      "addressbook-home-set",
		Namespace: xmlh.CardDAV,
		Children: []xmlh.Property{
			{Name: xmlh.TagHref, TextContent: env.h.prefix + env.identity + "/"},
		},
	})
}

func resolveSupportedReportSet(env *propEnv) mo.Result[xmlh.Property] {
	if !env.desc.IsCollection() {
		return mo.Err[xmlh.Property](errPropNotFound)
	}
	return mo.Ok(xmlh.Property{
		Name: "supported-report-set",
		Children: []xmlh.Property{
			{Name: "supported-report", Children: []xmlh.Property{
				{Name: "report", Children: []xmlh.Property{
					{Name: xmlh.TagMultiget, Namespace: xmlh.CardDAV},
				}},
			}},
		},
	})
}

// handlePropfind resolves the path into descriptors and answers one
// multistatus response per descriptor.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request, path, identity, grant string, logger *slog.Logger) {
	if !rights.Can(grant, rights.ReadCollection) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req xmlh.PropfindRequest
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r.Body); err != nil {
		// Empty or absent bodies are valid PROPFIND requests.
		doc = nil
	}
	if err := req.Parse(doc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	depth := h.parseDepth(r)
	descriptors, err := h.store.Discover(r.Context(), path, depth)
	if err != nil {
		h.sendError(w, err, logger)
		return
	}
	if len(descriptors) == 0 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	names := req.Prop
	if req.AllProp || req.PropName {
		names = allPropNames
	}

	response := xmlh.MultistatusResponse{}
	for _, desc := range descriptors {
		env := &propEnv{h: h, desc: desc, identity: identity}

		var found, notFound []xmlh.Property
		for _, name := range names {
			res, ok := propResolvers[name]
			if !ok {
				notFound = append(notFound, xmlh.Property{Name: name})
				continue
			}
			if prop, err := res(env).Get(); err == nil {
				if req.PropName {
					prop = xmlh.Property{Name: prop.Name, Namespace: prop.Namespace}
				}
				found = append(found, prop)
			} else {
				notFound = append(notFound, xmlh.Property{Name: name})
			}
		}

		resp := xmlh.Response{Href: h.href(desc.Path)}
		if len(found) > 0 {
			resp.PropStats = append(resp.PropStats, xmlh.PropStat{Props: found, Status: xmlh.StatusOK})
		}
		if len(notFound) > 0 {
			resp.PropStats = append(resp.PropStats, xmlh.PropStat{Props: notFound, Status: xmlh.StatusNotFound})
		}
		response.Responses = append(response.Responses, resp)
	}

	h.writeMultistatus(w, &response, logger)
	logger.Debug("propfind answered", "depth", depth, "resources", len(descriptors))
}

// href joins a resolved resource path onto the served prefix.
func (h *Handler) href(path string) string {
	return strings.TrimSuffix(h.prefix, "/") + path
}

func (h *Handler) writeMultistatus(w http.ResponseWriter, response *xmlh.MultistatusResponse, logger *slog.Logger) {
	w.Header().Set("Content-Type", mimeTypeXML)
	w.WriteHeader(http.StatusMultiStatus)
	if _, err := response.ToXML().WriteTo(w); err != nil {
		logger.Error("writing multistatus response", "error", err)
	}
}
