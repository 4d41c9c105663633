package validation

import (
	"net/url"
	"path"
	"strings"

	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
)

// ValidateURL performs basic YouTube URL validation without touching the
// network.
func ValidateURL(rawURL string) error {
	const op = "validation.ValidateURL"

	if rawURL == "" {
		return apperrors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return apperrors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperrors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	host := parsedURL.Hostname()
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return apperrors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	return nil
}

// ExtractVideoID pulls the video id out of the common YouTube URL shapes
// (watch?v=, youtu.be/, embed/, shorts/).
func ExtractVideoID(rawURL string) (string, error) {
	const op = "validation.ExtractVideoID"

	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", apperrors.InvalidInput(op, err, "Invalid URL format")
	}

	host := parsedURL.Hostname()

	if strings.Contains(host, "youtu.be") {
		if id := strings.Trim(parsedURL.Path, "/"); id != "" {
			return id, nil
		}
		return "", apperrors.InvalidInput(op, nil, "YouTube URL must contain a valid video ID")
	}

	if id := parsedURL.Query().Get("v"); id != "" {
		return id, nil
	}

	for _, prefix := range []string{"/embed/", "/shorts/"} {
		if strings.HasPrefix(parsedURL.Path, prefix) {
			if id := path.Base(parsedURL.Path); id != "" && id != "." {
				return id, nil
			}
		}
	}

	return "", apperrors.InvalidInput(op, nil, "YouTube URL must contain a valid video ID")
}
