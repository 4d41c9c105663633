package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jonathanhudak/knowledge-collector/models"
)

// searchListResponse mirrors the Data API v3 search.list response shape.
// https://developers.google.com/youtube/v3/docs/search/list
type searchListResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search runs a keyword video search and returns results in API order.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "10")
	params.Set("q", query)
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, fmt.Sprintf("%s/search?%s", c.dataAPIURL, params.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "youtube search")
	}

	var resp searchListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	results := make([]models.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, models.SearchResult{
			VideoID: item.ID.VideoID,
			Title:   item.Snippet.Title,
			Author:  item.Snippet.ChannelTitle,
			URL:     "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		})
	}

	logrus.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Info("YouTube search completed")

	return results, nil
}
