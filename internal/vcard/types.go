package vcard

import (
	"encoding/json"
	"time"

	"github.com/samber/mo"
)

// ContactRecord is one row of the remote contacts table, validated at the
// fetch boundary. Optional columns arrive as empty strings or null; the
// encoder decides which of them make it into the card.
type ContactRecord struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Email     string `json:"email"`
	EmailWork string `json:"email_work"`
	EmailHome string `json:"email_home"`

	Phone       string `json:"phone"`
	PhoneWork   string `json:"phone_work"`
	PhoneMobile string `json:"phone_mobile"`
	PhoneHome   string `json:"phone_home"`

	Company    string `json:"company"`
	JobTitle   string `json:"job_title"`
	Department string `json:"department"`

	// Addresses is the raw JSONB column; either an array of Address objects
	// or a JSON string wrapping one. Parsed lazily via PostalAddresses.
	Addresses json.RawMessage `json:"addresses"`

	Website string `json:"website"`
	Notes   string `json:"notes"`

	// Birthday and Anniversary are date columns, serialized by PostgREST as
	// "2006-01-02". Anniversary is fetched but not part of the v3 card.
	Birthday    string `json:"birthday"`
	Anniversary string `json:"anniversary"`

	UpdatedAt *time.Time `json:"updated_at"`

	// ETag is the precomputed content fingerprint, if the table has one.
	ETag string `json:"etag"`
}

// Address is one entry of the addresses JSONB array.
type Address struct {
	Type    string `json:"type"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// TypedValue is an email or phone slot together with its vCard TYPE parameter.
type TypedValue struct {
	Type  string
	Value string
}

// Emails returns the non-empty email slots in card order.
func (r ContactRecord) Emails() []TypedValue {
	var out []TypedValue
	for _, tv := range []TypedValue{
		{Type: "INTERNET", Value: r.Email},
		{Type: "WORK", Value: r.EmailWork},
		{Type: "HOME", Value: r.EmailHome},
	} {
		if tv.Value != "" {
			out = append(out, tv)
		}
	}
	return out
}

// Phones returns the non-empty phone slots in card order.
func (r ContactRecord) Phones() []TypedValue {
	var out []TypedValue
	for _, tv := range []TypedValue{
		{Type: "VOICE", Value: r.Phone},
		{Type: "WORK,VOICE", Value: r.PhoneWork},
		{Type: "CELL", Value: r.PhoneMobile},
		{Type: "HOME,VOICE", Value: r.PhoneHome},
	} {
		if tv.Value != "" {
			out = append(out, tv)
		}
	}
	return out
}

// PostalAddresses parses the addresses column. The column may hold the array
// directly or a string containing the array; both shapes occur in practice.
func (r ContactRecord) PostalAddresses() ([]Address, error) {
	if len(r.Addresses) == 0 {
		return nil, nil
	}
	var addrs []Address
	if err := json.Unmarshal(r.Addresses, &addrs); err == nil {
		return addrs, nil
	}
	var wrapped string
	if err := json.Unmarshal(r.Addresses, &wrapped); err != nil {
		return nil, err
	}
	if wrapped == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(wrapped), &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// BirthDate parses the birthday column; None when absent or unparseable.
func (r ContactRecord) BirthDate() mo.Option[time.Time] {
	if r.Birthday == "" {
		return mo.None[time.Time]()
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, r.Birthday); err == nil {
			return mo.Some(t)
		}
	}
	return mo.None[time.Time]()
}

// Fingerprint returns the precomputed etag, if the row carries one.
func (r ContactRecord) Fingerprint() mo.Option[string] {
	if r.ETag == "" {
		return mo.None[string]()
	}
	return mo.Some(r.ETag)
}

// EncodedCard is a serialized vCard together with its cache validators.
// Regenerated on every fetch; never persisted.
type EncodedCard struct {
	UID          string
	Text         string
	ETag         string
	LastModified time.Time
}
