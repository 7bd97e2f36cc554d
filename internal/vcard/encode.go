package vcard

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const crlf = "\r\n"

// Encoder turns contact records into vCard 3.0 documents. Encoding is
// deterministic: the same record always produces byte-identical output.
type Encoder struct {
	logger *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger used for skipped malformed sub-fields.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEncoder creates an Encoder. Without options it logs nowhere.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode serializes one record as a vCard 3.0 document. The caller must
// ensure DisplayName is non-empty; clients treat FN as mandatory.
// Malformed address or date sub-fields are logged and omitted rather than
// failing the whole card.
func (e *Encoder) Encode(rec ContactRecord) EncodedCard {
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"UID:" + rec.UID,
		"FN:" + rec.DisplayName,
	}

	if rec.FirstName != "" || rec.LastName != "" {
		lines = append(lines, fmt.Sprintf("N:%s;%s;;;", rec.LastName, rec.FirstName))
	}

	for _, email := range rec.Emails() {
		lines = append(lines, fmt.Sprintf("EMAIL;TYPE=%s:%s", email.Type, email.Value))
	}
	for _, phone := range rec.Phones() {
		lines = append(lines, fmt.Sprintf("TEL;TYPE=%s:%s", phone.Type, phone.Value))
	}

	if rec.Company != "" {
		lines = append(lines, "ORG:"+rec.Company)
	}
	if rec.JobTitle != "" {
		lines = append(lines, "TITLE:"+rec.JobTitle)
	}

	addrs, err := rec.PostalAddresses()
	if err != nil {
		e.logger.Warn("skipping unparseable addresses column",
			"uid", rec.UID, "error", err)
	}
	for _, addr := range addrs {
		if addr.Street == "" && addr.City == "" {
			continue
		}
		addrType := addr.Type
		if addrType == "" {
			addrType = "work"
		}
		lines = append(lines, fmt.Sprintf("ADR;TYPE=%s:;;%s;%s;%s;%s;%s",
			strings.ToUpper(addrType),
			addr.Street, addr.City, addr.State, addr.Zip, addr.Country))
	}

	if rec.Website != "" {
		lines = append(lines, "URL:"+rec.Website)
	}
	if rec.Notes != "" {
		lines = append(lines, "NOTE:"+escapeNote(rec.Notes))
	}

	if rec.Birthday != "" {
		if bday, ok := rec.BirthDate().Get(); ok {
			lines = append(lines, "BDAY:"+bday.Format("20060102"))
		} else {
			e.logger.Warn("skipping unparseable birthday",
				"uid", rec.UID, "birthday", rec.Birthday)
		}
	}

	if rec.UpdatedAt != nil {
		lines = append(lines, "REV:"+rec.UpdatedAt.UTC().Format("20060102T150405Z"))
	}

	lines = append(lines, "END:VCARD")
	text := strings.Join(lines, crlf) + crlf

	card := EncodedCard{
		UID:  rec.UID,
		Text: text,
		ETag: rec.Fingerprint().OrElse(fingerprint(text)),
	}
	if rec.UpdatedAt != nil {
		card.LastModified = *rec.UpdatedAt
	}
	return card
}

// escapeNote rewrites embedded newlines to the literal two-character \n
// sequence and escapes commas, in that order.
func escapeNote(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	return strings.ReplaceAll(s, ",", `\,`)
}

// fingerprint derives a quoted etag from the card text when the source row
// has none. sha1 is enough here; it only has to signal change.
func fingerprint(text string) string {
	sum := sha1.Sum([]byte(text))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
