package xml

import "github.com/beevik/etree"

// Namespace definitions for CardDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CardDAV is the CardDAV namespace
	CardDAV = "urn:ietf:params:xml:ns:carddav"
)

// AddNamespaces adds the standard WebDAV and CardDAV namespaces to the
// document root.
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns:D", DAV)
	root.CreateAttr("xmlns:CR", CardDAV)
}
