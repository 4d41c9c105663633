package transcripts

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
)

// trainingExample is one fine-tuning record. Output stays null until a
// response (e.g. a summary) is filled in downstream.
type trainingExample struct {
	Input  string  `json:"input"`
	Output *string `json:"output"`
}

// ExportTrainingData writes a training_data.jsonl file for a scope from its
// cached bulk transcripts, one JSON object per line.
func (s *Service) ExportTrainingData(scope string) (string, int, error) {
	const op = "TranscriptService.ExportTrainingData"
	logger := logrus.WithFields(logrus.Fields{
		"operation": op,
		"scope":     scope,
	})

	videoIDs, err := s.store.ScopeVideos(scope)
	if err != nil {
		return "", 0, apperrors.Internal(op, err, "Failed to list cached videos")
	}
	if len(videoIDs) == 0 {
		return "", 0, apperrors.NotFound(op, nil, "No cached transcripts for scope: "+scope)
	}

	path := s.store.TrainingDataPath(scope)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, apperrors.Internal(op, err, "Failed to create training data file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	count := 0
	for _, videoID := range videoIDs {
		text, ok := s.store.GetBulkTranscript(scope, videoID)
		if !ok {
			logger.WithField("video_id", videoID).Warn("Skipping unreadable cache entry")
			continue
		}
		line, err := json.Marshal(trainingExample{Input: text})
		if err != nil {
			return "", 0, apperrors.Internal(op, errors.Wrap(err, "encode training example"), "Failed to encode training data")
		}
		w.Write(line)
		w.WriteByte('\n')
		count++
	}
	if err := w.Flush(); err != nil {
		return "", 0, apperrors.Internal(op, err, "Failed to write training data file")
	}

	logger.WithField("examples", count).Info("Training data exported")
	return path, count, nil
}

// TrainingDataScopes lists scopes that have an exported training data file.
func (s *Service) TrainingDataScopes() ([]string, error) {
	scopes, err := s.store.Scopes()
	if err != nil {
		return nil, apperrors.Internal("TranscriptService.TrainingDataScopes", err, "Failed to list scopes")
	}
	var out []string
	for _, scope := range scopes {
		if _, err := os.Stat(s.store.TrainingDataPath(scope)); err == nil {
			out = append(out, scope)
		}
	}
	return out, nil
}
