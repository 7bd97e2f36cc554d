package dav

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supadav/internal/auth"
	"supadav/internal/storage"
	"supadav/internal/vcard"
)

type stubSource struct {
	records []vcard.ContactRecord
	err     error
}

func (s *stubSource) FetchContacts(context.Context) ([]vcard.ContactRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func testRecords() []vcard.ContactRecord {
	return []vcard.ContactRecord{
		{UID: "u1", DisplayName: "Jane Doe", Email: "j@x.com",
			UpdatedAt: timePtr(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))},
		{UID: "u2", DisplayName: "Bob Ray"},
	}
}

func newTestHandler(source storage.ContactSource) *Handler {
	return New("/carddav/", storage.New(source))
}

// do runs one request through the handler as the given identity.
func do(t *testing.T, h *Handler, method, target, body, identity string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if identity != "" {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{ID: identity}))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOptions(t *testing.T) {
	h := newTestHandler(&stubSource{})
	rec := do(t, h, "OPTIONS", "/carddav/", "", "a@b.com", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("DAV"), "addressbook")
	assert.Contains(t, rec.Header().Get("Allow"), "PROPFIND")
	assert.Contains(t, rec.Header().Get("Allow"), "REPORT")
}

func TestGet(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})

	rec := do(t, h, "GET", "/carddav/contacts.vcf/u1.vcf", "", "a@b.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vcard; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "Tue, 02 Jan 2024 03:04:05 GMT", rec.Header().Get("Last-Modified"))
	assert.Contains(t, rec.Body.String(), "FN:Jane Doe\r\n")
	assert.True(t, strings.HasSuffix(rec.Body.String(), "END:VCARD\r\n"))
}

func TestHead(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "HEAD", "/carddav/contacts.vcf/u1.vcf", "", "a@b.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.String())
}

func TestGet_NotFound(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "GET", "/carddav/contacts.vcf/nope.vcf", "", "a@b.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_CollectionNotAllowed(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "GET", "/carddav/contacts.vcf/", "", "a@b.com", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGet_UnauthenticatedForbidden(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "GET", "/carddav/contacts.vcf/u1.vcf", "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGet_FetchFailure(t *testing.T) {
	h := newTestHandler(&stubSource{err: errors.New("timeout")})
	rec := do(t, h, "GET", "/carddav/contacts.vcf/u1.vcf", "", "a@b.com", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMutationsRejected(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})

	tests := []struct {
		method string
		target string
		reason string
	}{
		{"PUT", "/carddav/contacts.vcf/u9.vcf", "cannot be modified"},
		{"DELETE", "/carddav/contacts.vcf/u1.vcf", "cannot be deleted"},
		{"MOVE", "/carddav/contacts.vcf/u1.vcf", "cannot be moved"},
		{"MKCOL", "/carddav/contacts.vcf/", "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, "", "a@b.com", nil)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.reason)

			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString(rec.Body.String()))
			require.Equal(t, "error", doc.Root().Tag)
			precondition := doc.Root().SelectElement("D:cannot-modify-protected-property")
			require.NotNil(t, precondition)
			assert.Contains(t, precondition.Text(), tt.reason)
		})
	}
}

func TestMkcol_PrincipalIsNoOp(t *testing.T) {
	h := newTestHandler(&stubSource{})
	rec := do(t, h, "MKCOL", "/carddav/alice@example.com/", "", "a@b.com", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWellKnownRedirect(t *testing.T) {
	h := newTestHandler(&stubSource{})
	req := httptest.NewRequest("GET", "/.well-known/carddav", nil)
	rec := httptest.NewRecorder()
	h.ServeWellKnown(rec, req)

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/carddav/", rec.Header().Get("Location"))
}

// multistatusHrefs parses a multistatus body and returns the hrefs in order.
func multistatusHrefs(t *testing.T, body string) []string {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(body))
	var hrefs []string
	for _, resp := range doc.Root().SelectElements("D:response") {
		hrefs = append(hrefs, resp.SelectElement("D:href").Text())
	}
	return hrefs
}

func TestPropfind_RootDepthZero(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})

	rec := do(t, h, "PROPFIND", "/carddav/", "", "a@b.com", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Equal(t, []string{"/carddav/contacts.vcf/"}, multistatusHrefs(t, rec.Body.String()))
	assert.Contains(t, rec.Body.String(), "<CR:addressbook/>")
}

func TestPropfind_CollectionDepthOne(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})

	rec := do(t, h, "PROPFIND", "/carddav/contacts.vcf/", "", "a@b.com", map[string]string{"Depth": "1"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Equal(t, []string{
		"/carddav/contacts.vcf/",
		"/carddav/contacts.vcf/u1.vcf",
		"/carddav/contacts.vcf/u2.vcf",
	}, multistatusHrefs(t, rec.Body.String()))
}

func TestPropfind_UnknownPath(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "PROPFIND", "/carddav/no/such/thing/", "", "a@b.com", map[string]string{"Depth": "0"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPropfind_PropRequest(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	body := `<?xml version="1.0"?>
		<D:propfind xmlns:D="DAV:">
			<D:prop><D:displayname/><D:getetag/><D:nonexistent/></D:prop>
		</D:propfind>`

	rec := do(t, h, "PROPFIND", "/carddav/contacts.vcf/", body, "a@b.com", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, "<D:displayname>Contacts</D:displayname>")
	// getetag and unknown props land in the 404 propstat for a collection.
	assert.Contains(t, out, "<D:nonexistent/>")
	assert.Contains(t, out, "HTTP/1.1 404 Not Found")
}

func TestPropfind_CurrentUserPrincipal(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	body := `<?xml version="1.0"?>
		<D:propfind xmlns:D="DAV:" xmlns:CR="urn:ietf:params:xml:ns:carddav">
			<D:prop><D:current-user-principal/><CR:addressbook-home-set/></D:prop>
		</D:propfind>`

	rec := do(t, h, "PROPFIND", "/carddav/", body, "alice@example.com", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Contains(t, rec.Body.String(), "<D:href>/carddav/alice@example.com/</D:href>")
}

func TestPropfind_DepthClamped(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "PROPFIND", "/carddav/contacts.vcf/", "", "a@b.com", map[string]string{"Depth": "infinity"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	// maxDepth defaults to 1, so infinity still lists the members.
	assert.Len(t, multistatusHrefs(t, rec.Body.String()), 3)
}

func TestReport_Multiget(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	body := `<?xml version="1.0"?>
		<CR:addressbook-multiget xmlns:D="DAV:" xmlns:CR="urn:ietf:params:xml:ns:carddav">
			<D:prop><D:getetag/><CR:address-data/></D:prop>
			<D:href>/carddav/contacts.vcf/u1.vcf</D:href>
			<D:href>/carddav/contacts.vcf/missing.vcf</D:href>
		</CR:addressbook-multiget>`

	rec := do(t, h, "REPORT", "/carddav/contacts.vcf/", body, "a@b.com", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	out := rec.Body.String()
	assert.Equal(t, []string{
		"/carddav/contacts.vcf/u1.vcf",
		"/carddav/contacts.vcf/missing.vcf",
	}, multistatusHrefs(t, out))
	assert.Contains(t, out, "FN:Jane Doe")
	assert.Contains(t, out, "EMAIL;TYPE=INTERNET:j@x.com")
	assert.Contains(t, out, "HTTP/1.1 404 Not Found")
}

func TestReport_AbsoluteHref(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	body := `<?xml version="1.0"?>
		<CR:addressbook-multiget xmlns:D="DAV:" xmlns:CR="urn:ietf:params:xml:ns:carddav">
			<D:prop><CR:address-data/></D:prop>
			<D:href>http://dav.example.com:5232/carddav/contacts.vcf/u1.vcf</D:href>
		</CR:addressbook-multiget>`

	rec := do(t, h, "REPORT", "/carddav/contacts.vcf/", body, "a@b.com", nil)
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	out := rec.Body.String()
	// The response echoes the href exactly as the client sent it.
	assert.Equal(t, []string{"http://dav.example.com:5232/carddav/contacts.vcf/u1.vcf"},
		multistatusHrefs(t, out))
	assert.Contains(t, out, "FN:Jane Doe")
	assert.NotContains(t, out, "HTTP/1.1 404 Not Found")
}

func TestReport_BadBody(t *testing.T) {
	h := newTestHandler(&stubSource{records: testRecords()})
	rec := do(t, h, "REPORT", "/carddav/contacts.vcf/", "<D:propfind xmlns:D=\"DAV:\"/>", "a@b.com", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
