package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonathanhudak/knowledge-collector/models"
)

// trackList is the XML returned by timedtext?type=list.
type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []struct {
		LangCode string `xml:"lang_code,attr"`
		Kind     string `xml:"kind,attr"`
	} `xml:"track"`
}

// timedtextResponse is the json3 body returned by the timedtext endpoint.
type timedtextResponse struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs,omitempty"`
	} `json:"events"`
}

// ListAvailable returns the caption language codes published for a video, in
// the order YouTube lists them.
func (c *Client) ListAvailable(ctx context.Context, videoID string) ([]string, error) {
	if videoID == "" {
		return nil, errors.New("video ID is required")
	}

	params := url.Values{}
	params.Set("type", "list")
	params.Set("v", videoID)

	body, err := c.get(ctx, fmt.Sprintf("%s?%s", c.timedtextURL, params.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "list caption tracks")
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, errors.Wrap(err, "parse caption track list")
	}

	langs := make([]string, 0, len(list.Tracks))
	for _, track := range list.Tracks {
		langs = append(langs, track.LangCode)
	}
	return langs, nil
}

// Fetch downloads the caption track for a video in the given language as
// ordered timed segments.
func (c *Client) Fetch(ctx context.Context, videoID, lang string) ([]models.Segment, error) {
	if videoID == "" {
		return nil, errors.New("video ID is required")
	}
	if lang == "" {
		lang = "en"
	}

	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")

	body, err := c.get(ctx, fmt.Sprintf("%s?%s", c.timedtextURL, params.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch captions for %s lang %s", videoID, lang)
	}

	var resp timedtextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "parse timedtext response")
	}

	var segments []models.Segment
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		segments = append(segments, models.Segment{
			Text:     text.String(),
			Start:    float64(event.TStartMs) / 1000.0,
			Duration: float64(event.DDurationMs) / 1000.0,
		})
	}

	return segments, nil
}
