package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// YelpAdapter fetches reviews through the Yelp Fusion API. The business
// id is the last path segment of the account URL
// (e.g. https://www.yelp.com/biz/some-restaurant-kuala-lumpur).
type YelpAdapter struct {
	apiKey string
	client *resty.Client
}

type yelpReviewsResponse struct {
	Reviews []struct {
		ID          string  `json:"id"`
		URL         string  `json:"url"`
		Text        string  `json:"text"`
		Rating      float64 `json:"rating"`
		TimeCreated string  `json:"time_created"`
		User        struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"reviews"`
}

func NewYelpAdapter(apiKey string) *YelpAdapter {
	return &YelpAdapter{
		apiKey: apiKey,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (y *YelpAdapter) Platform() models.Platform {
	return models.PlatformYelp
}

func (y *YelpAdapter) Fetch(ctx context.Context, src *models.SourceAccount) ([]RawItem, error) {
	if y.apiKey == "" {
		logrus.Debug("Yelp adapter disabled - missing API key")
		return nil, nil
	}

	businessID := yelpBusinessID(src.AccountURL)
	if businessID == "" {
		logrus.Warnf("No business id in account URL %s", src.AccountURL)
		return nil, nil
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+y.apiKey).
		SetQueryParam("sort_by", "newest").
		Get(fmt.Sprintf("https://api.yelp.com/v3/businesses/%s/reviews", url.PathEscape(businessID)))

	if err != nil {
		return nil, Transient(fmt.Errorf("yelp reviews request: %w", err))
	}

	if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
		return nil, Transient(fmt.Errorf("yelp API returned status %d", resp.StatusCode()))
	}
	if resp.StatusCode() != 200 {
		logrus.Warnf("Yelp API returned status %d for business %s", resp.StatusCode(), businessID)
		return nil, nil
	}

	var body yelpReviewsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logrus.Warnf("Unparsable Yelp response for business %s: %v", businessID, err)
		return nil, nil
	}

	var items []RawItem
	for _, rev := range body.Reviews {
		publishedAt, err := time.Parse("2006-01-02 15:04:05", rev.TimeCreated)
		if err != nil {
			publishedAt = time.Now().UTC()
		}
		stars := int(rev.Rating)
		items = append(items, RawItem{
			ExternalID:  rev.ID,
			Author:      rev.User.Name,
			Text:        rev.Text,
			Stars:       &stars,
			PublishedAt: publishedAt,
			URL:         rev.URL,
		})
	}

	return dedupeItems(items), nil
}

func yelpBusinessID(accountURL string) string {
	u, err := url.Parse(accountURL)
	if err != nil {
		return ""
	}
	id := path.Base(strings.TrimSuffix(u.Path, "/"))
	if id == "." || id == "/" {
		return ""
	}
	return id
}
