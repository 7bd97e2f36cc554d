package xml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// localTag strips any namespace prefix from an element tag.
func localTag(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// findChild finds a direct child element by local tag name, regardless of
// namespace prefix.
func findChild(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if localTag(child.Tag) == tag {
			return child
		}
	}
	return nil
}

// PropfindRequest represents a PROPFIND request body.
type PropfindRequest struct {
	Prop     []string
	AllProp  bool
	PropName bool
}

// Parse parses a PROPFIND request from an XML document. An empty body is
// treated as allprop, per RFC 4918.
func (r *PropfindRequest) Parse(doc *etree.Document) error {
	r.Prop = nil
	r.AllProp = false
	r.PropName = false

	if doc == nil || doc.Root() == nil {
		r.AllProp = true
		return nil
	}

	root := doc.Root()
	if localTag(root.Tag) != TagPropfind {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	if prop := findChild(root, TagProp); prop != nil {
		for _, p := range prop.ChildElements() {
			r.Prop = append(r.Prop, localTag(p.Tag))
		}
	}
	if findChild(root, TagPropname) != nil {
		r.PropName = true
	}
	if findChild(root, TagAllprop) != nil {
		r.AllProp = true
	}
	if len(r.Prop) == 0 && !r.PropName {
		r.AllProp = true
	}

	return nil
}

// MultigetRequest represents an addressbook-multiget REPORT request.
type MultigetRequest struct {
	Prop  []string
	Hrefs []string
}

// Parse parses an addressbook-multiget request from an XML document.
func (r *MultigetRequest) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if localTag(root.Tag) != TagMultiget {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	r.Prop = nil
	r.Hrefs = nil

	if prop := findChild(root, TagProp); prop != nil {
		for _, p := range prop.ChildElements() {
			r.Prop = append(r.Prop, localTag(p.Tag))
		}
	}
	for _, child := range root.ChildElements() {
		if localTag(child.Tag) == TagHref {
			r.Hrefs = append(r.Hrefs, child.Text())
		}
	}

	return nil
}
