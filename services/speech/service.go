// Package speech synthesizes audio from cached transcript artifacts and
// persists the result back into the cache.
package speech

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathanhudak/knowledge-collector/cache"
	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
)

// Synthesizer is the external speech-synthesis capability: a sequence of text
// units rendered as one continuous audio stream.
type Synthesizer interface {
	StreamSynthesize(ctx context.Context, units []string, voice, model string) (io.ReadCloser, error)
}

type Service struct {
	store *cache.Store
	tts   Synthesizer
	voice string
	model string
}

func NewService(store *cache.Store, tts Synthesizer, voice, model string) *Service {
	return &Service{
		store: store,
		tts:   tts,
		voice: voice,
		model: model,
	}
}

// sourceKind maps an audio artifact kind to the transcript kind it reads from.
func sourceKind(kind cache.Kind) (cache.Kind, bool) {
	switch kind {
	case cache.OriginalAudio:
		return cache.OriginalTranscript, true
	case cache.TranslatedAudio:
		return cache.TranslatedTranscript, true
	}
	return "", false
}

// Synthesize returns the audio stream for a transcript artifact. A cached
// audio entry is returned directly unless regenerate is set; otherwise the
// transcript is streamed through the synthesizer paragraph by paragraph and
// persisted incrementally as the caller reads.
func (s *Service) Synthesize(ctx context.Context, videoID string, kind cache.Kind, regenerate bool) (io.ReadCloser, error) {
	const op = "SpeechService.Synthesize"
	logger := logrus.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
		"kind":      kind,
	})

	transcriptKind, ok := sourceKind(kind)
	if !ok {
		return nil, apperrors.InvalidInput(op, nil, "Unsupported audio artifact kind: "+string(kind))
	}

	audioKey := cache.Key{VideoID: videoID, Kind: kind}
	if !regenerate && s.store.Exists(audioKey) {
		f, err := os.Open(s.store.Path(audioKey))
		if err != nil {
			return nil, apperrors.Internal(op, err, "Failed to open cached audio")
		}
		logger.Info("Audio served from cache")
		return f, nil
	}

	data, ok := s.store.Get(cache.Key{VideoID: videoID, Kind: transcriptKind})
	if !ok {
		return nil, apperrors.AudioSourceMissing(op, videoID)
	}
	_, _, text, _ := cache.DecodeTranscript(data)

	units := paragraphUnits(text)
	if len(units) == 0 {
		return nil, apperrors.AudioSourceMissing(op, videoID)
	}

	stream, err := s.tts.StreamSynthesize(ctx, units, s.voice, s.model)
	if err != nil {
		return nil, apperrors.Internal(op, err, "Speech synthesis failed")
	}

	sink, err := s.store.Appender(audioKey)
	if err != nil {
		stream.Close()
		return nil, apperrors.Internal(op, err, "Failed to open audio cache entry")
	}

	logger.WithField("paragraphs", len(units)).Info("Synthesizing audio")
	return &persistingStream{src: stream, sink: sink}, nil
}

// paragraphUnits splits transcript text into blank-line delimited paragraphs,
// dropping empty ones. Each unit keeps a trailing space so concatenated
// speech does not run words together across boundaries.
func paragraphUnits(text string) []string {
	var units []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		units = append(units, paragraph+" ")
	}
	return units
}

// persistingStream tees synthesized audio into the cache as the caller reads
// it. A partial read leaves a partial artifact, matching append-as-received
// semantics.
type persistingStream struct {
	src  io.ReadCloser
	sink io.WriteCloser
}

func (p *persistingStream) Read(b []byte) (int, error) {
	n, err := p.src.Read(b)
	if n > 0 {
		if _, werr := p.sink.Write(b[:n]); werr != nil {
			logrus.WithError(werr).Error("Failed to persist audio bytes")
		}
	}
	return n, err
}

func (p *persistingStream) Close() error {
	p.src.Close()
	return p.sink.Close()
}
