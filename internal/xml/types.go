package xml

import "github.com/beevik/etree"

// Common XML tag names used in CardDAV
const (
	TagPropfind    = "propfind"
	TagProp        = "prop"
	TagPropname    = "propname"
	TagAllprop     = "allprop"
	TagMultistatus = "multistatus"
	TagResponse    = "response"
	TagHref        = "href"
	TagPropstat    = "propstat"
	TagStatus      = "status"
	TagError       = "error"

	TagResourcetype = "resourcetype"
	TagCollection   = "collection"
	TagAddressbook  = "addressbook"
	TagAddressData  = "address-data"

	TagMultiget = "addressbook-multiget"
)

// Property represents a generic XML property
type Property struct {
	Name        string
	Namespace   string
	TextContent string
	Children    []Property
}

// Error represents a WebDAV error response body: a D:error element wrapping
// a single precondition tag.
type Error struct {
	Namespace string
	Tag       string
	Message   string
}

// ToXML renders the error as a standalone document with the standard
// namespace prefixes declared.
func (e *Error) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("D:" + TagError)
	AddNamespaces(doc)
	tag := root.CreateElement(prefixTag(e.Tag, e.Namespace))
	if e.Message != "" {
		tag.SetText(e.Message)
	}
	return doc
}
