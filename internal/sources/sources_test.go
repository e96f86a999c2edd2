package sources

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

func googleSource() *models.SourceAccount {
	return &models.SourceAccount{
		ID:         "src-1",
		TenantID:   "tenant-1",
		Platform:   models.PlatformGoogle,
		AccountURL: "https://www.google.com/maps/place/?q=place_id:ChIJtest123",
	}
}

func TestGoogleAdapter_Fetch(t *testing.T) {
	adapter := NewGoogleAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://maps.googleapis.com/maps/api/place/details/json",
		httpmock.NewStringResponder(200, `{
			"status": "OK",
			"result": {
				"url": "https://maps.google.com/?cid=123",
				"reviews": [
					{"author_name": "John D.", "rating": 1, "text": "Terrible.", "time": 1700000000},
					{"author_name": "Sarah L.", "rating": 5, "text": "Wonderful!", "time": 1700000100}
				]
			}
		}`))

	items, err := adapter.Fetch(context.Background(), googleSource())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1700000000:John D.", items[0].ExternalID)
	assert.Equal(t, "John D.", items[0].Author)
	assert.Equal(t, "Terrible.", items[0].Text)
	require.NotNil(t, items[0].Stars)
	assert.Equal(t, 1, *items[0].Stars)
	assert.Equal(t, int64(1700000000), items[0].PublishedAt.Unix())
}

func TestGoogleAdapter_ServerErrorIsTransient(t *testing.T) {
	adapter := NewGoogleAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://maps.googleapis.com/maps/api/place/details/json",
		httpmock.NewStringResponder(500, "internal error"))

	items, err := adapter.Fetch(context.Background(), googleSource())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Nil(t, items)
}

func TestGoogleAdapter_RateLimitIsTransient(t *testing.T) {
	adapter := NewGoogleAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://maps.googleapis.com/maps/api/place/details/json",
		httpmock.NewStringResponder(429, "too many requests"))

	_, err := adapter.Fetch(context.Background(), googleSource())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGoogleAdapter_BadResponseIsPermanentZeroYield(t *testing.T) {
	adapter := NewGoogleAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://maps.googleapis.com/maps/api/place/details/json",
		httpmock.NewStringResponder(200, "not json at all"))

	items, err := adapter.Fetch(context.Background(), googleSource())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGoogleAdapter_NonOKStatusIsPermanentZeroYield(t *testing.T) {
	adapter := NewGoogleAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://maps.googleapis.com/maps/api/place/details/json",
		httpmock.NewStringResponder(200, `{"status": "NOT_FOUND", "result": {}}`))

	items, err := adapter.Fetch(context.Background(), googleSource())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGoogleAdapter_DisabledWithoutKey(t *testing.T) {
	adapter := NewGoogleAdapter("")
	items, err := adapter.Fetch(context.Background(), googleSource())
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestYelpAdapter_Fetch(t *testing.T) {
	adapter := NewYelpAdapter("test-key")
	httpmock.ActivateNonDefault(adapter.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.yelp.com/v3/businesses/some-restaurant/reviews",
		httpmock.NewStringResponder(200, `{
			"reviews": [
				{
					"id": "yelp-rev-1",
					"url": "https://www.yelp.com/biz/some-restaurant?hrid=yelp-rev-1",
					"text": "Great laksa!",
					"rating": 5,
					"time_created": "2026-08-01 12:30:00",
					"user": {"name": "Sarah L."}
				}
			]
		}`))

	src := &models.SourceAccount{
		ID:         "src-2",
		Platform:   models.PlatformYelp,
		AccountURL: "https://www.yelp.com/biz/some-restaurant",
	}
	items, err := adapter.Fetch(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "yelp-rev-1", items[0].ExternalID)
	assert.Equal(t, "Sarah L.", items[0].Author)
	require.NotNil(t, items[0].Stars)
	assert.Equal(t, 5, *items[0].Stars)
	assert.Equal(t, "2026-08-01 12:30:00", items[0].PublishedAt.Format("2006-01-02 15:04:05"))
}

func TestPlaceIDFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"q parameter form", "https://www.google.com/maps/place/?q=place_id:ChIJabc", "ChIJabc"},
		{"place_id parameter", "https://maps.google.com/?place_id=ChIJdef", "ChIJdef"},
		{"no place id", "https://maps.google.com/?q=pizza", ""},
		{"empty URL", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, placeIDFromURL(tt.url))
		})
	}
}

func TestYelpBusinessID(t *testing.T) {
	assert.Equal(t, "some-restaurant-kl", yelpBusinessID("https://www.yelp.com/biz/some-restaurant-kl"))
	assert.Equal(t, "some-restaurant-kl", yelpBusinessID("https://www.yelp.com/biz/some-restaurant-kl/"))
}

func TestRegistry_Lookup(t *testing.T) {
	registry := NewRegistry(NewGoogleAdapter(""), NewYelpAdapter(""))

	adapter, ok := registry.Lookup(models.PlatformGoogle)
	require.True(t, ok)
	assert.Equal(t, models.PlatformGoogle, adapter.Platform())

	_, ok = registry.Lookup(models.PlatformFacebook)
	assert.False(t, ok)
}

func TestDedupeItems(t *testing.T) {
	items := []RawItem{
		{ExternalID: "a", Text: "first"},
		{ExternalID: "b", Text: "second"},
		{ExternalID: "a", Text: "repeat of first"},
		{ExternalID: "", Text: "no id"},
	}
	unique := dedupeItems(items)
	require.Len(t, unique, 2)
	assert.Equal(t, "first", unique[0].Text)
	assert.Equal(t, "second", unique[1].Text)
}
