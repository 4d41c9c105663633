// Package transcripts resolves video transcripts through the on-disk cache,
// falling back to the external transcript source on a miss.
package transcripts

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathanhudak/knowledge-collector/cache"
	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
	"github.com/jonathanhudak/knowledge-collector/models"
)

// LanguageCached marks a transcript served from cache whose original language
// is no longer known.
const LanguageCached = "cached"

// languagePreference is the fixed priority order used when picking among
// available caption tracks. First available wins.
var languagePreference = []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh"}

// Source is the external transcript-fetch capability.
type Source interface {
	ListAvailable(ctx context.Context, videoID string) ([]string, error)
	Fetch(ctx context.Context, videoID, lang string) ([]models.Segment, error)
}

// Metadata is the external video metadata capability.
type Metadata interface {
	Snippet(ctx context.Context, videoID string) (title, channelTitle string, err error)
}

type Service struct {
	store    *cache.Store
	source   Source
	metadata Metadata
}

func NewService(store *cache.Store, source Source, metadata Metadata) *Service {
	return &Service{
		store:    store,
		source:   source,
		metadata: metadata,
	}
}

// Fetch resolves a single-video transcript. A present cache entry is always
// preferred over re-fetching, regardless of age.
func (s *Service) Fetch(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "TranscriptService.Fetch"
	logger := logrus.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
	})

	key := cache.Key{VideoID: videoID, Kind: cache.OriginalTranscript}
	if data, ok := s.store.Get(key); ok {
		title, author, text, _ := cache.DecodeTranscript(data)
		logger.Info("Transcript served from cache")
		return &models.Transcript{
			VideoID:  videoID,
			Title:    title,
			Author:   author,
			Text:     text,
			Language: LanguageCached,
		}, nil
	}

	text, lang, err := s.fetchText(ctx, videoID)
	if err != nil {
		return nil, err
	}

	title, author, err := s.metadata.Snippet(ctx, videoID)
	if err != nil {
		// The transcript is still usable without metadata.
		logger.WithError(err).Warn("Failed to fetch video metadata")
	}

	if err := s.store.Put(key, cache.EncodeTranscript(title, author, text)); err != nil {
		return nil, apperrors.Internal(op, err, "Failed to cache transcript")
	}

	logger.WithField("language", lang).Info("Transcript fetched and cached")
	return &models.Transcript{
		VideoID:  videoID,
		Title:    title,
		Author:   author,
		Text:     text,
		Language: lang,
	}, nil
}

// FetchBulk resolves a transcript for the bulk flow, cached under the channel
// scope in the legacy JSON layout.
func (s *Service) FetchBulk(ctx context.Context, scope, videoID string) (string, error) {
	if text, ok := s.store.GetBulkTranscript(scope, videoID); ok {
		return text, nil
	}

	text, _, err := s.fetchText(ctx, videoID)
	if err != nil {
		return "", err
	}

	if err := s.store.PutBulkTranscript(scope, videoID, text); err != nil {
		return "", apperrors.Internal("TranscriptService.FetchBulk", err, "Failed to cache transcript")
	}
	return text, nil
}

// fetchText picks the best available caption language and flattens the timed
// segments into a single space-separated blob. Segment timing is discarded.
func (s *Service) fetchText(ctx context.Context, videoID string) (string, string, error) {
	const op = "TranscriptService.fetchText"

	available, err := s.source.ListAvailable(ctx, videoID)
	if err != nil {
		return "", "", apperrors.TranscriptUnavailable(op, err, videoID)
	}

	lang, ok := pickLanguage(available)
	if !ok {
		return "", "", apperrors.TranscriptUnavailable(op, nil, videoID)
	}

	segments, err := s.source.Fetch(ctx, videoID, lang)
	if err != nil {
		return "", "", apperrors.TranscriptUnavailable(op, err, videoID)
	}
	if len(segments) == 0 {
		return "", "", apperrors.TranscriptUnavailable(op, nil, videoID)
	}

	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, segment.Text)
	}
	return strings.Join(parts, " "), lang, nil
}

func pickLanguage(available []string) (string, bool) {
	for _, preferred := range languagePreference {
		for _, lang := range available {
			if lang == preferred {
				return lang, true
			}
		}
	}
	return "", false
}
