package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supadav/internal/vcard"
)

func TestDiscover_RootDepthZero(t *testing.T) {
	s := New(&stubSource{records: sampleRecords()})

	descriptors, err := s.Discover(context.Background(), "/", 0)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.True(t, descriptors[0].IsCollection())
	assert.Equal(t, "/contacts.vcf/", descriptors[0].Path)
}

func TestDiscover_CollectionDepthOne(t *testing.T) {
	s := New(&stubSource{records: sampleRecords()})

	descriptors, err := s.Discover(context.Background(), "/contacts.vcf/", 1)
	require.NoError(t, err)
	require.Len(t, descriptors, 4)

	assert.True(t, descriptors[0].IsCollection())
	for i, want := range []string{"u1", "u2", "u3"} {
		d := descriptors[i+1]
		assert.False(t, d.IsCollection())
		assert.Equal(t, "/contacts.vcf/"+want+".vcf", d.Path)
		require.NotNil(t, d.Item)
		assert.Equal(t, d.Item.ETag, d.ETag)
	}
}

func TestDiscover_CollectionDepthZero(t *testing.T) {
	s := New(&stubSource{records: sampleRecords()})

	descriptors, err := s.Discover(context.Background(), "/contacts.vcf/", 0)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.True(t, descriptors[0].IsCollection())
}

func TestDiscover_PrincipalPath(t *testing.T) {
	s := New(&stubSource{records: sampleRecords()})

	descriptors, err := s.Discover(context.Background(), "/alice@example.com/", 1)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "/alice@example.com/contacts.vcf/", descriptors[0].Path)
}

func TestDiscover_UnknownPathIsEmptyNotError(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	s := New(source)

	descriptors, err := s.Discover(context.Background(), "/no/such/path/", 1)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
	assert.Zero(t, source.fetches, "unmatched paths must not hit the remote store")
}

func TestDiscover_FetchFailurePropagates(t *testing.T) {
	s := New(&stubSource{err: errors.New("boom")})

	_, err := s.Discover(context.Background(), "/contacts.vcf/", 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestDiscover_OneFetchPerResolution(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	s := New(source)

	_, err := s.Discover(context.Background(), "/contacts.vcf/", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, source.fetches)

	// No caching across resolutions; each one fetches again.
	_, err = s.Discover(context.Background(), "/contacts.vcf/", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetches)
}

func TestDiscover_EndToEnd(t *testing.T) {
	source := &stubSource{records: []vcard.ContactRecord{{
		UID:         "u1",
		DisplayName: "Jane Doe",
		Email:       "j@x.com",
		UpdatedAt:   timePtr(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	}}}
	s := New(source)

	descriptors, err := s.Discover(context.Background(), "/contacts.vcf/", 1)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	item := descriptors[1]
	require.NotNil(t, item.Item)
	for _, line := range []string{
		"FN:Jane Doe\r\n",
		"EMAIL;TYPE=INTERNET:j@x.com\r\n",
		"REV:20240102T030405Z\r\n",
	} {
		assert.True(t, strings.Contains(item.Item.Text, line), "card missing %q", line)
	}
}

func TestCreateCollection(t *testing.T) {
	s := New(&stubSource{})

	// Principal containers are virtual; creating one succeeds as a no-op.
	assert.NoError(t, s.CreateCollection("/alice@example.com/"))

	assert.ErrorIs(t, s.CreateCollection("/contacts.vcf/"), ErrPermissionDenied)
	assert.ErrorIs(t, s.CreateCollection("/foo/bar/"), ErrPermissionDenied)
}

func TestStorageMove(t *testing.T) {
	s := New(&stubSource{})
	assert.ErrorIs(t, s.Move("/contacts.vcf/u1.vcf", "/x/u1.vcf"), ErrPermissionDenied)
}

func TestOpenCollection(t *testing.T) {
	s := New(&stubSource{records: sampleRecords()})

	book, err := s.OpenCollection(context.Background(), "/contacts.vcf/u1.vcf")
	require.NoError(t, err)
	_, ok := book.Get("u1")
	assert.True(t, ok)

	_, err = s.OpenCollection(context.Background(), "/not/a/thing/")
	assert.ErrorIs(t, err, ErrNotFound)
}
