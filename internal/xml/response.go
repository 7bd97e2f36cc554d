package xml

import (
	"github.com/beevik/etree"
)

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	Status    string
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []Property
	Status string
}

// StatusOK and StatusNotFound are the propstat status lines.
const (
	StatusOK       = "HTTP/1.1 200 OK"
	StatusNotFound = "HTTP/1.1 404 Not Found"
)

// ToXML converts a MultistatusResponse to an XML document
func (m *MultistatusResponse) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("D:" + TagMultistatus)
	AddNamespaces(doc)

	for _, resp := range m.Responses {
		response := root.CreateElement("D:" + TagResponse)
		href := response.CreateElement("D:" + TagHref)
		href.SetText(resp.Href)

		switch {
		case len(resp.PropStats) == 0 && resp.Status != "":
			status := response.CreateElement("D:" + TagStatus)
			status.SetText(resp.Status)
		default:
			for _, propstat := range resp.PropStats {
				ps := response.CreateElement("D:" + TagPropstat)
				prop := ps.CreateElement("D:" + TagProp)
				for _, p := range propstat.Props {
					prop.AddChild(p.toPrefixedElement())
				}
				status := ps.CreateElement("D:" + TagStatus)
				status.SetText(propstat.Status)
			}
		}
	}

	return doc
}

// toPrefixedElement converts a Property to an element with the document's
// namespace prefixes applied.
func (p *Property) toPrefixedElement() *etree.Element {
	elem := etree.NewElement(prefixTag(p.Name, p.Namespace))
	if p.TextContent != "" {
		elem.SetText(p.TextContent)
	}
	for _, child := range p.Children {
		elem.AddChild(child.toPrefixedElement())
	}
	return elem
}

func prefixTag(name, namespace string) string {
	switch namespace {
	case CardDAV:
		return "CR:" + name
	default:
		return "D:" + name
	}
}
