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

// FacebookAdapter fetches page ratings through the Graph API. Requires a
// page access token with the ratings permission; without one the adapter
// yields nothing. Recommendations carry no star rating, so the
// recommendation type maps to 5/1 stars.
type FacebookAdapter struct {
	accessToken string
	client      *resty.Client
}

type facebookRatingsResponse struct {
	Data []struct {
		CreatedTime        string `json:"created_time"`
		RecommendationType string `json:"recommendation_type"`
		ReviewText         string `json:"review_text"`
		Reviewer           struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"reviewer"`
	} `json:"data"`
}

func NewFacebookAdapter(accessToken string) *FacebookAdapter {
	return &FacebookAdapter{
		accessToken: accessToken,
		client:      resty.New().SetTimeout(30 * time.Second),
	}
}

func (f *FacebookAdapter) Platform() models.Platform {
	return models.PlatformFacebook
}

func (f *FacebookAdapter) Fetch(ctx context.Context, src *models.SourceAccount) ([]RawItem, error) {
	if f.accessToken == "" {
		logrus.Debug("Facebook adapter disabled - missing page access token")
		return nil, nil
	}

	pageID := facebookPageID(src.AccountURL)
	if pageID == "" {
		logrus.Warnf("No page id in account URL %s", src.AccountURL)
		return nil, nil
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": f.accessToken,
			"fields":       "created_time,recommendation_type,review_text,reviewer{name,id}",
		}).
		Get(fmt.Sprintf("https://graph.facebook.com/v19.0/%s/ratings", url.PathEscape(pageID)))

	if err != nil {
		return nil, Transient(fmt.Errorf("facebook ratings request: %w", err))
	}

	if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
		return nil, Transient(fmt.Errorf("facebook API returned status %d", resp.StatusCode()))
	}
	if resp.StatusCode() != 200 {
		logrus.Warnf("Facebook API returned status %d for page %s", resp.StatusCode(), pageID)
		return nil, nil
	}

	var body facebookRatingsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logrus.Warnf("Unparsable Facebook response for page %s: %v", pageID, err)
		return nil, nil
	}

	var items []RawItem
	for _, rating := range body.Data {
		publishedAt, err := time.Parse(time.RFC3339, rating.CreatedTime)
		if err != nil {
			publishedAt = time.Now().UTC()
		}
		stars := 5
		if strings.EqualFold(rating.RecommendationType, "negative") {
			stars = 1
		}
		items = append(items, RawItem{
			ExternalID:  fmt.Sprintf("%s:%d", rating.Reviewer.ID, publishedAt.Unix()),
			Author:      rating.Reviewer.Name,
			Text:        rating.ReviewText,
			Stars:       &stars,
			PublishedAt: publishedAt,
			URL:         src.AccountURL,
		})
	}

	return dedupeItems(items), nil
}

func facebookPageID(accountURL string) string {
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
