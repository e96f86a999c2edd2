package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// GoogleAdapter fetches reviews through the Places details API. The
// source account URL must carry the place id as a query parameter
// (e.g. https://www.google.com/maps/place/?q=place_id:ChIJ...).
type GoogleAdapter struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type googlePlaceResponse struct {
	Status string `json:"status"`
	Result struct {
		URL     string `json:"url"`
		Reviews []struct {
			AuthorName string `json:"author_name"`
			Rating     int    `json:"rating"`
			Text       string `json:"text"`
			Time       int64  `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

func NewGoogleAdapter(apiKey string) *GoogleAdapter {
	return &GoogleAdapter{
		apiKey:  apiKey,
		client:  resty.New().SetTimeout(30 * time.Second),
		baseURL: "https://maps.googleapis.com",
	}
}

func (g *GoogleAdapter) Platform() models.Platform {
	return models.PlatformGoogle
}

func (g *GoogleAdapter) Fetch(ctx context.Context, src *models.SourceAccount) ([]RawItem, error) {
	if g.apiKey == "" {
		logrus.Debug("Google adapter disabled - missing API key")
		return nil, nil
	}

	placeID := placeIDFromURL(src.AccountURL)
	if placeID == "" {
		logrus.Warnf("No place id in account URL %s", src.AccountURL)
		return nil, nil
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"place_id": placeID,
			"fields":   "url,reviews",
			"key":      g.apiKey,
		}).
		Get(g.baseURL + "/maps/api/place/details/json")

	if err != nil {
		return nil, Transient(fmt.Errorf("google place details request: %w", err))
	}

	if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
		return nil, Transient(fmt.Errorf("google API returned status %d", resp.StatusCode()))
	}
	if resp.StatusCode() != 200 {
		logrus.Warnf("Google API returned status %d for place %s", resp.StatusCode(), placeID)
		return nil, nil
	}

	var place googlePlaceResponse
	if err := json.Unmarshal(resp.Body(), &place); err != nil {
		logrus.Warnf("Unparsable Google response for place %s: %v", placeID, err)
		return nil, nil
	}
	if place.Status != "OK" {
		logrus.Warnf("Google API status %q for place %s", place.Status, placeID)
		return nil, nil
	}

	var items []RawItem
	for _, rev := range place.Result.Reviews {
		stars := rev.Rating
		item := RawItem{
			// The details API exposes no review id; timestamp plus author
			// is stable across fetches.
			ExternalID:  fmt.Sprintf("%d:%s", rev.Time, rev.AuthorName),
			Author:      rev.AuthorName,
			Text:        rev.Text,
			Stars:       &stars,
			PublishedAt: time.Unix(rev.Time, 0).UTC(),
			URL:         src.AccountURL,
		}
		items = append(items, item)
	}

	return dedupeItems(items), nil
}

func placeIDFromURL(accountURL string) string {
	u, err := url.Parse(accountURL)
	if err != nil {
		return ""
	}
	q := u.Query().Get("q")
	const prefix = "place_id:"
	if len(q) > len(prefix) && q[:len(prefix)] == prefix {
		return q[len(prefix):]
	}
	return u.Query().Get("place_id")
}
