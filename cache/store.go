package cache

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind is the category of cached artifact.
type Kind string

const (
	OriginalTranscript   Kind = "original_transcript"
	TranslatedTranscript Kind = "translated_transcript"
	OriginalAudio        Kind = "original_audio"
	TranslatedAudio      Kind = "translated_audio"
	BulkTranscript       Kind = "bulk_transcript"
)

// fileNames maps single-video artifact kinds to their on-disk names under
// storage/transcripts/<video_id>/.
var fileNames = map[Kind]string{
	OriginalTranscript:   "original.txt",
	TranslatedTranscript: "translated.txt",
	OriginalAudio:        "original_audio.mp3",
	TranslatedAudio:      "translated_audio.mp3",
}

// ParseKind validates a kind string from an external caller.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case OriginalTranscript, TranslatedTranscript, OriginalAudio, TranslatedAudio, BulkTranscript:
		return Kind(s), true
	}
	return "", false
}

// IsAudio reports whether the kind holds binary audio.
func (k Kind) IsAudio() bool {
	return k == OriginalAudio || k == TranslatedAudio
}

// Key identifies one cache entry. Bulk entries are scoped by channel name;
// all other kinds are scoped by video id.
type Key struct {
	Scope   string
	VideoID string
	Kind    Kind
}

// Store is a filesystem-backed artifact store. Two on-disk layouts coexist:
//
//	<root>/cache/<scope>/<video_id>.json                  (bulk flow, legacy)
//	<root>/transcripts/<video_id>/original.txt            (single-video flow)
//	<root>/transcripts/<video_id>/translated.txt
//	<root>/transcripts/<video_id>/original_audio.mp3
//	<root>/transcripts/<video_id>/translated_audio.mp3
//
// Entries are never evicted; the store is a durable archive, not an LRU cache.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// Path resolves a key to its file location without touching the filesystem.
func (s *Store) Path(key Key) string {
	if key.Kind == BulkTranscript {
		return filepath.Join(s.root, "cache", key.Scope, key.VideoID+".json")
	}
	return filepath.Join(s.root, "transcripts", key.VideoID, fileNames[key.Kind])
}

// Get is a pure lookup. It never blocks on the network and has no side
// effects.
func (s *Store) Get(key Key) ([]byte, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Exists reports whether an entry is present without reading it.
func (s *Store) Exists(key Key) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Put durably writes an artifact. The write is visible to subsequent Get
// calls from this process and from other processes sharing the storage root.
func (s *Store) Put(key Key, data []byte) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create cache directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write cache entry %s", path)
	}
	logrus.WithFields(logrus.Fields{
		"kind": key.Kind,
		"path": path,
	}).Debug("Cache entry written")
	return nil
}

// Appender opens an incremental writer for streamed artifacts. Any previous
// content at the key is discarded; bytes are then persisted as they arrive.
func (s *Store) Appender(key Key) (io.WriteCloser, error) {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create cache directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open cache entry %s", path)
	}
	return f, nil
}

// bulkEntry is the legacy JSON body of a bulk cache file.
type bulkEntry struct {
	Transcript string `json:"transcript"`
}

// GetBulkTranscript reads a transcript from the legacy bulk layout.
func (s *Store) GetBulkTranscript(scope, videoID string) (string, bool) {
	data, ok := s.Get(Key{Scope: scope, VideoID: videoID, Kind: BulkTranscript})
	if !ok {
		return "", false
	}
	var entry bulkEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"scope":    scope,
			"video_id": videoID,
		}).WithError(err).Warn("Corrupt bulk cache entry, treating as miss")
		return "", false
	}
	return entry.Transcript, true
}

// PutBulkTranscript writes a transcript in the legacy bulk layout.
func (s *Store) PutBulkTranscript(scope, videoID, transcript string) error {
	data, err := json.Marshal(bulkEntry{Transcript: transcript})
	if err != nil {
		return errors.Wrap(err, "encode bulk cache entry")
	}
	return s.Put(Key{Scope: scope, VideoID: videoID, Kind: BulkTranscript}, data)
}

// Scopes lists every channel scope present under the bulk layout, sorted.
func (s *Store) Scopes() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "cache"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "list cache scopes")
	}
	var scopes []string
	for _, entry := range entries {
		if entry.IsDir() {
			scopes = append(scopes, entry.Name())
		}
	}
	sort.Strings(scopes)
	return scopes, nil
}

// ScopeVideos lists the video ids cached under a scope, sorted.
func (s *Store) ScopeVideos(scope string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "cache", scope))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list scope %s", scope)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}

// TrainingDataPath resolves the training data export location for a scope.
func (s *Store) TrainingDataPath(scope string) string {
	return filepath.Join(s.root, "cache", scope, "training_data.jsonl")
}
