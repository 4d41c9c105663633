package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jonathanhudak/knowledge-collector/cache"
	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
	"github.com/jonathanhudak/knowledge-collector/jobs"
	"github.com/jonathanhudak/knowledge-collector/models"
)

type stubSearcher struct {
	results []models.SearchResult
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.results, s.err
}

type stubTranscripts struct {
	transcript  *models.Transcript
	fetchErr    error
	exportPath  string
	exportCount int
	exportErr   error
	scopes      []string
}

func (s *stubTranscripts) Fetch(ctx context.Context, videoID string) (*models.Transcript, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.transcript, nil
}

func (s *stubTranscripts) ExportTrainingData(scope string) (string, int, error) {
	if s.exportErr != nil {
		return "", 0, s.exportErr
	}
	return s.exportPath, s.exportCount, nil
}

func (s *stubTranscripts) TrainingDataScopes() ([]string, error) {
	return s.scopes, nil
}

type stubTranslator struct {
	translated     string
	translateOK    bool
	title          string
	titleOK        bool
	translateCalls int
	titleCalls     int
}

func (s *stubTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, bool) {
	s.translateCalls++
	return s.translated, s.translateOK
}

func (s *stubTranslator) TranslateTitle(ctx context.Context, title, targetLanguage string) (string, bool) {
	s.titleCalls++
	return s.title, s.titleOK
}

type stubAudio struct {
	data string
	err  error
}

func (s *stubAudio) Synthesize(ctx context.Context, videoID string, kind cache.Kind, regenerate bool) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.data)), nil
}

type stubSyncer struct {
	uploaded int
	err      error
}

func (s *stubSyncer) Sync(ctx context.Context) (int, error) {
	return s.uploaded, s.err
}

type quickFetcher struct{}

func (quickFetcher) FetchBulk(ctx context.Context, scope, videoID string) (string, error) {
	return "text for " + videoID, nil
}

type fixture struct {
	searcher    *stubSearcher
	transcripts *stubTranscripts
	translator  *stubTranslator
	audio       *stubAudio
	syncer      Syncer
	store       *cache.Store
	jobs        *jobs.Manager
	limiter     *rate.Limiter
	mux         *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		searcher:    &stubSearcher{},
		transcripts: &stubTranscripts{},
		translator:  &stubTranslator{},
		audio:       &stubAudio{},
		syncer:      &stubSyncer{},
		store:       cache.NewStore(t.TempDir()),
		jobs:        jobs.NewManager(quickFetcher{}),
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	h := New(f.searcher, f.jobs, f.transcripts, f.translator, f.audio, f.store, f.syncer, "Spanish", f.limiter)
	f.mux = http.NewServeMux()
	h.Register(f.mux)
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFetchChannelTranscriptsRequiresChannelName(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a channel name.", decode(t, rec)["error"])
}

func TestFetchChannelTranscriptsStartsJob(t *testing.T) {
	f := newFixture(t)
	f.searcher.results = []models.SearchResult{
		{VideoID: "v1", Title: "One", Author: "Some Channel"},
		{VideoID: "v2", Title: "Two", Author: "Some Channel"},
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=Some+Channel", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, "Transcription job started", body["message"])
	assert.Equal(t, float64(2), body["total_videos"])
}

func TestFetchChannelTranscriptsAuthorFilter(t *testing.T) {
	f := newFixture(t)
	f.searcher.results = []models.SearchResult{
		{VideoID: "v1", Author: "Wanted Channel"},
		{VideoID: "v2", Author: "Other Channel"},
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=q&author=wanted+channel", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_videos"])
}

func TestFetchChannelTranscriptsNoAuthorMatch(t *testing.T) {
	f := newFixture(t)
	f.searcher.results = []models.SearchResult{{VideoID: "v1", Author: "Other"}}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=mychan&author=wanted", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No videos found for channel: mychan", decode(t, rec)["error"])
}

func TestFetchChannelTranscriptsNoSearchResults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No search results found", decode(t, rec)["error"])
}

func TestFetchChannelTranscriptsSearchFailure(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = assert.AnError

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=chan", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process search results", decode(t, rec)["error"])
}

func TestFetchChannelTranscriptsRateLimited(t *testing.T) {
	f := newFixture(t)
	f.searcher.results = []models.SearchResult{{VideoID: "v1"}}
	f.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	f.rebuild()

	first := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=chan", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := f.do(httptest.NewRequest(http.MethodGet, "/transcripts?channel_name=chan", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Rate limit exceeded", decode(t, second)["error"])
}

func TestJobStatusNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/jobs/no-such-job", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decode(t, rec)["error"])
}

func TestJobStatusReportsProgress(t *testing.T) {
	f := newFixture(t)
	jobID := f.jobs.Submit([]models.SearchResult{{VideoID: "v1", Title: "One"}}, "chan")

	require.Eventually(t, func() bool {
		job, ok := f.jobs.Get(jobID)
		return ok && job.Status == models.JobCompleted
	}, 5*time.Second, 5*time.Millisecond)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, jobID, body["job_id"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "1/1", body["progress"])
	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)
}

func TestListJobsPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.jobs.Submit([]models.SearchResult{{VideoID: "v1"}}, "chan")
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/jobs?page=1&per_page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 2)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/jobs?page=50&per_page=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSingleTranscriptRejectsBadURL(t *testing.T) {
	f := newFixture(t)

	rec := f.do(postForm("/transcript", url.Values{"url": {"https://example.com/watch?v=abc"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only YouTube URLs are supported", decode(t, rec)["error"])
}

func TestSingleTranscript(t *testing.T) {
	f := newFixture(t)
	f.transcripts.transcript = &models.Transcript{
		VideoID:  "abc123",
		Title:    "A Title",
		Author:   "An Author",
		Text:     "the transcript text",
		Language: "en",
	}

	rec := f.do(postForm("/transcript", url.Values{"url": {"https://www.youtube.com/watch?v=abc123"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "abc123", body["video_id"])
	assert.Equal(t, "A Title", body["title"])
	assert.Equal(t, "the transcript text", body["transcript"])
	downloads := body["downloads"].(map[string]interface{})
	assert.Equal(t, "/download/abc123/original_transcript", downloads["original"])
	assert.NotContains(t, body, "translation")
	assert.Equal(t, 0, f.translator.translateCalls)
}

func TestSingleTranscriptFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.transcripts.fetchErr = apperrors.TranscriptUnavailable("op", nil, "abc123")

	rec := f.do(postForm("/transcript", url.Values{"url": {"https://youtu.be/abc123"}}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transcript unavailable for video: abc123", decode(t, rec)["error"])
}

func TestSingleTranscriptWithTranslation(t *testing.T) {
	f := newFixture(t)
	f.transcripts.transcript = &models.Transcript{VideoID: "abc123", Title: "A Title", Author: "An Author", Text: "hello"}
	f.translator.translated = "hola"
	f.translator.translateOK = true
	f.translator.title = "Un Titulo"
	f.translator.titleOK = true

	rec := f.do(postForm("/transcript", url.Values{
		"url":       {"https://www.youtube.com/watch?v=abc123"},
		"translate": {"true"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	translation := body["translation"].(map[string]interface{})
	assert.Equal(t, "Un Titulo", translation["title"])
	assert.Equal(t, "hola", translation["transcript"])
	downloads := body["downloads"].(map[string]interface{})
	assert.Equal(t, "/download/abc123/translated_transcript", downloads["translated"])

	// Translation is persisted with the inline header.
	data, ok := f.store.Get(cache.Key{VideoID: "abc123", Kind: cache.TranslatedTranscript})
	require.True(t, ok)
	assert.Equal(t, "Title: Un Titulo\nAuthor: An Author\n\nhola", string(data))
}

func TestSingleTranscriptTranslationUnavailable(t *testing.T) {
	f := newFixture(t)
	f.transcripts.transcript = &models.Transcript{VideoID: "abc123", Text: "hello"}

	rec := f.do(postForm("/transcript", url.Values{
		"url":       {"https://www.youtube.com/watch?v=abc123"},
		"translate": {"true"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Translation unavailable", body["translation_error"])
	assert.NotContains(t, body, "translation")
	_, ok := f.store.Get(cache.Key{VideoID: "abc123", Kind: cache.TranslatedTranscript})
	assert.False(t, ok)
}

func TestSingleTranscriptCachedTranslationSkipsTranslator(t *testing.T) {
	f := newFixture(t)
	f.transcripts.transcript = &models.Transcript{VideoID: "abc123", Title: "T", Author: "A", Text: "hello"}
	cached := cache.EncodeTranscript("Titulo Cacheado", "A", "hola cacheada")
	require.NoError(t, f.store.Put(cache.Key{VideoID: "abc123", Kind: cache.TranslatedTranscript}, cached))

	rec := f.do(postForm("/transcript", url.Values{
		"url":       {"https://www.youtube.com/watch?v=abc123"},
		"translate": {"true"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	translation := decode(t, rec)["translation"].(map[string]interface{})
	assert.Equal(t, "Titulo Cacheado", translation["title"])
	assert.Equal(t, "hola cacheada", translation["transcript"])
	assert.Equal(t, 0, f.translator.translateCalls)
	assert.Equal(t, 0, f.translator.titleCalls)
}

func TestSingleTranscriptRepairsHeaderlessTranslation(t *testing.T) {
	f := newFixture(t)
	f.transcripts.transcript = &models.Transcript{VideoID: "abc123", Title: "A Title", Author: "An Author", Text: "hello"}
	f.translator.title = "Un Titulo"
	f.translator.titleOK = true
	key := cache.Key{VideoID: "abc123", Kind: cache.TranslatedTranscript}
	require.NoError(t, f.store.Put(key, []byte("hola sin cabecera")))

	rec := f.do(postForm("/transcript", url.Values{
		"url":       {"https://www.youtube.com/watch?v=abc123"},
		"translate": {"true"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	translation := decode(t, rec)["translation"].(map[string]interface{})
	assert.Equal(t, "Un Titulo", translation["title"])
	assert.Equal(t, "hola sin cabecera", translation["transcript"])
	// The body was not re-translated, only the title.
	assert.Equal(t, 0, f.translator.translateCalls)
	assert.Equal(t, 1, f.translator.titleCalls)

	data, ok := f.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "Title: Un Titulo\nAuthor: An Author\n\nhola sin cabecera", string(data))
}

func TestDownloadTranscript(t *testing.T) {
	f := newFixture(t)
	key := cache.Key{VideoID: "vid1", Kind: cache.OriginalTranscript}
	require.NoError(t, f.store.Put(key, []byte("artifact body")))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/download/vid1/original_transcript", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=vid1_original_transcript", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "artifact body", rec.Body.String())
}

func TestDownloadAudioContentType(t *testing.T) {
	f := newFixture(t)
	key := cache.Key{VideoID: "vid1", Kind: cache.OriginalAudio}
	require.NoError(t, f.store.Put(key, []byte("mp3 bytes")))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/download/vid1/original_audio", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
}

func TestDownloadRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/download/vid1/bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/download/vid1/bulk_transcript", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadMissingArtifact(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/download/vid1/original_transcript", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Artifact not found", decode(t, rec)["error"])
}

func TestAudioStreamsSynthesizedBytes(t *testing.T) {
	f := newFixture(t)
	f.audio.data = "mp3 stream"

	rec := f.do(httptest.NewRequest(http.MethodGet, "/audio/vid1/original_audio", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3 stream", rec.Body.String())
}

func TestAudioRejectsTranscriptKind(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/audio/vid1/original_transcript", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudioMissingTranscript(t *testing.T) {
	f := newFixture(t)
	f.audio.err = apperrors.AudioSourceMissing("op", "vid1")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/audio/vid1/translated_audio", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transcript not found for video: vid1", decode(t, rec)["error"])
}

func TestListTrainingData(t *testing.T) {
	f := newFixture(t)
	f.transcripts.scopes = []string{"alpha", "beta"}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/training_data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"channels":["alpha","beta"]}`, rec.Body.String())
}

func TestListTrainingDataEmpty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/training_data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"channels":[]}`, rec.Body.String())
}

func TestBuildTrainingData(t *testing.T) {
	f := newFixture(t)
	f.transcripts.exportPath = "/data/ch/training_data.jsonl"
	f.transcripts.exportCount = 7

	rec := f.do(httptest.NewRequest(http.MethodPost, "/training_data/ch", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ch", body["scope"])
	assert.Equal(t, float64(7), body["examples"])
	assert.Equal(t, "/data/ch/training_data.jsonl", body["path"])
}

func TestBuildTrainingDataUnknownScope(t *testing.T) {
	f := newFixture(t)
	f.transcripts.exportErr = apperrors.NotFound("op", nil, "No cached transcripts for channel: nope")

	rec := f.do(httptest.NewRequest(http.MethodPost, "/training_data/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncCacheUnconfigured(t *testing.T) {
	f := newFixture(t)
	f.syncer = nil
	f.rebuild()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/sync", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Sync target is not configured", decode(t, rec)["error"])
}

func TestSyncCacheSuccess(t *testing.T) {
	f := newFixture(t)
	f.syncer = &stubSyncer{uploaded: 4}
	f.rebuild()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Training data synchronized successfully.", body["message"])
	assert.Equal(t, float64(4), body["uploaded"])
}

func TestSyncCacheBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.syncer = &stubSyncer{err: &smithy.GenericAPIError{Code: "InvalidAccessKeyId", Message: "bad key"}}
	f.rebuild()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/sync", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Error with storage credentials")
}

func TestSyncCacheGenericFailure(t *testing.T) {
	f := newFixture(t)
	f.syncer = &stubSyncer{err: assert.AnError}
	f.rebuild()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/sync", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An error occurred during sync", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
