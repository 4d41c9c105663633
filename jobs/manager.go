// Package jobs tracks background bulk-transcript operations in an in-memory
// registry. Jobs live only for the process lifetime.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathanhudak/knowledge-collector/models"
)

// Fetcher resolves one bulk transcript, cache-first.
type Fetcher interface {
	FetchBulk(ctx context.Context, scope, videoID string) (string, error)
}

// trackedJob pairs a job record with its own lock so updating one job never
// contends with readers of unrelated jobs.
type trackedJob struct {
	mu  sync.Mutex
	job models.Job
}

type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*trackedJob
	order   []string
	fetcher Fetcher

	// spawn schedules the worker; replaced in tests, and a seam for moving
	// to a supervised pool.
	spawn func(func())
}

func NewManager(fetcher Fetcher) *Manager {
	return &Manager{
		jobs:    make(map[string]*trackedJob),
		fetcher: fetcher,
		spawn:   func(fn func()) { go fn() },
	}
}

// Submit registers a new in-progress job and hands the video list to a
// background worker. It returns the job id immediately.
func (m *Manager) Submit(videos []models.SearchResult, scope string) string {
	jobID := uuid.New().String()

	tracked := &trackedJob{
		job: models.Job{
			JobID:       jobID,
			Status:      models.JobInProgress,
			Scope:       scope,
			TotalVideos: len(videos),
			Results:     []models.TranscriptResult{},
			CreatedAt:   time.Now(),
		},
	}

	m.mu.Lock()
	m.jobs[jobID] = tracked
	m.order = append(m.order, jobID)
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"job_id":       jobID,
		"scope":        scope,
		"total_videos": len(videos),
	}).Info("Transcription job started")

	m.spawn(func() { m.run(tracked, videos, scope) })

	return jobID
}

// run processes videos in the supplied order. A failed video is logged and
// skipped; the job always terminates in the completed state.
func (m *Manager) run(tracked *trackedJob, videos []models.SearchResult, scope string) {
	logger := logrus.WithFields(logrus.Fields{
		"job_id": tracked.job.JobID,
		"scope":  scope,
	})

	for _, video := range videos {
		text, err := m.fetcher.FetchBulk(context.Background(), scope, video.VideoID)
		if err != nil {
			logger.WithError(err).WithField("video_id", video.VideoID).Error("Error processing video")
			continue
		}

		tracked.mu.Lock()
		tracked.job.Results = append(tracked.job.Results, models.TranscriptResult{
			VideoID:    video.VideoID,
			Title:      video.Title,
			Transcript: text,
		})
		tracked.job.ProcessedVideos++
		tracked.mu.Unlock()
	}

	tracked.mu.Lock()
	tracked.job.Status = models.JobCompleted
	processed := tracked.job.ProcessedVideos
	tracked.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"processed_videos": processed,
		"total_videos":     len(videos),
	}).Info("Transcription job completed")
}

// Get returns a point-in-time snapshot of a job.
func (m *Manager) Get(jobID string) (models.Job, bool) {
	m.mu.RLock()
	tracked, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return models.Job{}, false
	}
	return tracked.snapshot(), true
}

// List returns a page of job snapshots in submission order. Out-of-range
// pages yield an empty slice.
func (m *Manager) List(page, perPage int) []models.Job {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	m.mu.RLock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	m.mu.RUnlock()

	start := (page - 1) * perPage
	if start >= len(ids) {
		return []models.Job{}
	}
	end := start + perPage
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]models.Job, 0, end-start)
	for _, id := range ids[start:end] {
		m.mu.RLock()
		tracked := m.jobs[id]
		m.mu.RUnlock()
		out = append(out, tracked.snapshot())
	}
	return out
}

// snapshot copies the job under its lock so a reader never observes a counter
// without its matching result.
func (t *trackedJob) snapshot() models.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.job
	job.Results = make([]models.TranscriptResult, len(t.job.Results))
	copy(job.Results, t.job.Results)
	return job
}
