// Package handlers exposes the HTTP boundary: bulk job submission and
// polling, the synchronous single-video path, artifact downloads, audio
// synthesis, training data export, and blob sync.
package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jonathanhudak/knowledge-collector/blobsync"
	"github.com/jonathanhudak/knowledge-collector/cache"
	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
	"github.com/jonathanhudak/knowledge-collector/jobs"
	"github.com/jonathanhudak/knowledge-collector/models"
	"github.com/jonathanhudak/knowledge-collector/validation"
)

// Searcher is the external video search capability.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// TranscriptService resolves single-video transcripts and training exports.
type TranscriptService interface {
	Fetch(ctx context.Context, videoID string) (*models.Transcript, error)
	ExportTrainingData(scope string) (string, int, error)
	TrainingDataScopes() ([]string, error)
}

// Translator converts transcript text and titles to a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, bool)
	TranslateTitle(ctx context.Context, title, targetLanguage string) (string, bool)
}

// AudioService produces audio streams for cached transcript artifacts.
type AudioService interface {
	Synthesize(ctx context.Context, videoID string, kind cache.Kind, regenerate bool) (io.ReadCloser, error)
}

// Syncer pushes cached bulk artifacts to the blob target.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

type Handler struct {
	search         Searcher
	jobs           *jobs.Manager
	transcripts    TranscriptService
	translator     Translator
	audio          AudioService
	store          *cache.Store
	syncer         Syncer
	targetLanguage string
	limiter        *rate.Limiter
}

type Config struct {
	TargetLanguage    string
	RateLimit         int
	RateLimitInterval rate.Limit
}

func New(
	search Searcher,
	jobManager *jobs.Manager,
	transcripts TranscriptService,
	translator Translator,
	audio AudioService,
	store *cache.Store,
	syncer Syncer,
	targetLanguage string,
	limiter *rate.Limiter,
) *Handler {
	return &Handler{
		search:         search,
		jobs:           jobManager,
		transcripts:    transcripts,
		translator:     translator,
		audio:          audio,
		store:          store,
		syncer:         syncer,
		targetLanguage: targetLanguage,
		limiter:        limiter,
	}
}

// Register wires the routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /transcripts", h.FetchChannelTranscripts)
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.JobStatus)
	mux.HandleFunc("POST /transcript", h.SingleTranscript)
	mux.HandleFunc("GET /download/{video_id}/{kind}", h.Download)
	mux.HandleFunc("GET /audio/{video_id}/{kind}", h.Audio)
	mux.HandleFunc("GET /training_data", h.ListTrainingData)
	mux.HandleFunc("POST /training_data/{scope}", h.BuildTrainingData)
	mux.HandleFunc("POST /sync", h.SyncCache)
	mux.HandleFunc("GET /health", h.Health)
}

// FetchChannelTranscripts searches for a channel's videos and starts a bulk
// transcription job over the matches.
func (h *Handler) FetchChannelTranscripts(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.FetchChannelTranscripts"
	logger := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})

	channelName := r.URL.Query().Get("channel_name")
	author := r.URL.Query().Get("author")
	if channelName == "" {
		respondError(w, apperrors.InvalidInput(op, nil, "Please provide a channel name."))
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
		return
	}

	results, err := h.search.Search(r.Context(), channelName)
	if err != nil {
		logger.WithError(err).Error("Search failed")
		respondError(w, apperrors.SearchFailed(op, err))
		return
	}
	if len(results) == 0 {
		respondError(w, apperrors.NotFound(op, nil, "No search results found"))
		return
	}

	filtered := filterByAuthor(results, author)
	if len(filtered) == 0 {
		logger.WithField("channel_name", channelName).Info("No videos matched channel")
		respondError(w, apperrors.NoMatchingVideos(op, channelName))
		return
	}

	jobID := h.jobs.Submit(filtered, channelName)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":       jobID,
		"message":      "Transcription job started",
		"total_videos": len(filtered),
	})
}

// filterByAuthor keeps results whose author matches, case-insensitively. An
// empty author keeps everything.
func filterByAuthor(results []models.SearchResult, author string) []models.SearchResult {
	if author == "" {
		return results
	}
	var filtered []models.SearchResult
	for _, result := range results {
		if strings.EqualFold(result.Author, author) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// JobStatus returns a snapshot of one job.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.JobStatus"

	jobID := r.PathValue("id")
	job, ok := h.jobs.Get(jobID)
	if !ok {
		respondError(w, apperrors.NotFound(op, nil, "Job not found"))
		return
	}

	respondJSON(w, http.StatusOK, jobResponse(job))
}

// ListJobs returns a page of jobs in submission order.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)

	listed := h.jobs.List(page, perPage)
	out := make([]map[string]interface{}, 0, len(listed))
	for _, job := range listed {
		out = append(out, jobResponse(job))
	}
	respondJSON(w, http.StatusOK, out)
}

func jobResponse(job models.Job) map[string]interface{} {
	return map[string]interface{}{
		"job_id":           job.JobID,
		"status":           job.Status,
		"total_videos":     job.TotalVideos,
		"processed_videos": job.ProcessedVideos,
		"progress":         strconv.Itoa(job.ProcessedVideos) + "/" + strconv.Itoa(job.TotalVideos),
		"results":          job.Results,
	}
}

// SingleTranscript fetches one video's transcript synchronously, optionally
// translating it, and returns download references for each artifact produced.
func (h *Handler) SingleTranscript(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.SingleTranscript"
	logger := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})

	url := r.FormValue("url")
	translateRequested := r.FormValue("translate") == "true"

	videoID, err := validation.ExtractVideoID(url)
	if err != nil {
		respondError(w, err)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
		return
	}

	transcript, err := h.transcripts.Fetch(r.Context(), videoID)
	if err != nil {
		logger.WithError(err).WithField("video_id", videoID).Error("Transcript fetch failed")
		respondError(w, err)
		return
	}

	response := map[string]interface{}{
		"video_id":   videoID,
		"title":      transcript.Title,
		"author":     transcript.Author,
		"language":   transcript.Language,
		"transcript": transcript.Text,
		"downloads": map[string]string{
			"original": downloadRef(videoID, cache.OriginalTranscript),
		},
	}

	if translateRequested {
		translated, translatedTitle, ok := h.resolveTranslation(r.Context(), videoID, transcript)
		if ok {
			response["translation"] = map[string]interface{}{
				"title":      translatedTitle,
				"transcript": translated,
			}
			response["downloads"].(map[string]string)["translated"] = downloadRef(videoID, cache.TranslatedTranscript)
		} else {
			response["translation_error"] = "Translation unavailable"
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// resolveTranslation returns the translated transcript and title, cache-first.
// A cached translated artifact missing its header is repaired in place.
func (h *Handler) resolveTranslation(ctx context.Context, videoID string, transcript *models.Transcript) (string, string, bool) {
	key := cache.Key{VideoID: videoID, Kind: cache.TranslatedTranscript}

	if data, ok := h.store.Get(key); ok {
		title, _, text, hasHeader := cache.DecodeTranscript(data)
		if hasHeader {
			return text, title, true
		}
		// Header repair path: older entries were written without the
		// inline header.
		repairedTitle, _ := h.translator.TranslateTitle(ctx, transcript.Title, h.targetLanguage)
		if repairedTitle == "" {
			repairedTitle = transcript.Title
		}
		repaired := cache.EncodeTranscript(repairedTitle, transcript.Author, text)
		if err := h.store.Put(key, repaired); err != nil {
			logrus.WithError(err).WithField("video_id", videoID).Error("Failed to repair translated cache entry")
		}
		return text, repairedTitle, true
	}

	translated, ok := h.translator.Translate(ctx, transcript.Text, h.targetLanguage)
	if !ok {
		return "", "", false
	}

	translatedTitle, ok := h.translator.TranslateTitle(ctx, transcript.Title, h.targetLanguage)
	if !ok {
		translatedTitle = transcript.Title
	}

	artifact := cache.EncodeTranscript(translatedTitle, transcript.Author, translated)
	if err := h.store.Put(key, artifact); err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Error("Failed to cache translation")
	}
	return translated, translatedTitle, true
}

func downloadRef(videoID string, kind cache.Kind) string {
	return "/download/" + videoID + "/" + string(kind)
}

// Download serves a cached artifact by video id and kind.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.Download"

	videoID := r.PathValue("video_id")
	kind, ok := cache.ParseKind(r.PathValue("kind"))
	if !ok || kind == cache.BulkTranscript {
		respondError(w, apperrors.InvalidInput(op, nil, "Unknown artifact kind"))
		return
	}

	data, ok := h.store.Get(cache.Key{VideoID: videoID, Kind: kind})
	if !ok {
		respondError(w, apperrors.NotFound(op, nil, "Artifact not found"))
		return
	}

	if kind.IsAudio() {
		w.Header().Set("Content-Type", "audio/mpeg")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+videoID+"_"+string(kind))
	w.Write(data)
}

// Audio synthesizes (or serves cached) audio for a transcript artifact.
func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.Audio"

	videoID := r.PathValue("video_id")
	kind, ok := cache.ParseKind(r.PathValue("kind"))
	if !ok || !kind.IsAudio() {
		respondError(w, apperrors.InvalidInput(op, nil, "Audio kind must be original_audio or translated_audio"))
		return
	}
	regenerate := r.URL.Query().Get("regenerate") == "true"

	stream, err := h.audio.Synthesize(r.Context(), videoID, kind, regenerate)
	if err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Error("Audio synthesis failed")
		respondError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, stream); err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Error("Audio stream interrupted")
	}
}

// ListTrainingData lists scopes with an exported training data file.
func (h *Handler) ListTrainingData(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.transcripts.TrainingDataScopes()
	if err != nil {
		respondError(w, err)
		return
	}
	if scopes == nil {
		scopes = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"channels": scopes})
}

// BuildTrainingData exports a training_data.jsonl for a scope from its cached
// bulk transcripts.
func (h *Handler) BuildTrainingData(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")

	path, count, err := h.transcripts.ExportTrainingData(scope)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scope":    scope,
		"examples": count,
		"path":     path,
	})
}

// SyncCache uploads all cached bulk artifacts to the blob target.
func (h *Handler) SyncCache(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.SyncCache"

	if h.syncer == nil {
		respondError(w, apperrors.Internal(op, nil, "Sync target is not configured"))
		return
	}

	uploaded, err := h.syncer.Sync(r.Context())
	if err != nil {
		logrus.WithError(err).Error("Cache sync failed")
		if blobsync.IsCredentialsError(err) {
			respondError(w, apperrors.CredentialsError(op, err))
			return
		}
		respondError(w, apperrors.Internal(op, err, "An error occurred during sync"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Training data synchronized successfully.",
		"uploaded": uploaded,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
