package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// Snippet fetches the title and channel title for a video.
func (c *Client) Snippet(ctx context.Context, videoID string) (title, channelTitle string, err error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", videoID)
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, fmt.Sprintf("%s/videos?%s", c.dataAPIURL, params.Encode()))
	if err != nil {
		return "", "", errors.Wrap(err, "youtube videos.list")
	}

	var resp videoListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", errors.Wrap(err, "decode videos response")
	}
	if len(resp.Items) == 0 {
		return "", "", errors.Errorf("video %s not found", videoID)
	}

	return resp.Items[0].Snippet.Title, resp.Items[0].Snippet.ChannelTitle, nil
}
