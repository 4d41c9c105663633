package models

import "time"

type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
)

// TranscriptResult is one successfully processed video inside a bulk job.
type TranscriptResult struct {
	VideoID    string `json:"video_id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
}

// Job tracks a background bulk-fetch operation. Jobs live only for the
// lifetime of the process; nothing is persisted.
type Job struct {
	JobID           string             `json:"job_id"`
	Status          JobStatus          `json:"status"`
	Scope           string             `json:"-"`
	TotalVideos     int                `json:"total_videos"`
	ProcessedVideos int                `json:"processed_videos"`
	Results         []TranscriptResult `json:"results"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (j *Job) IsCompleted() bool { return j.Status == JobCompleted }

// SearchResult is the transient output of the video search capability.
type SearchResult struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	URL     string `json:"url"`
}

// Segment is one timed caption entry from the transcript source. Timing is
// carried through the capability boundary but discarded when transcripts are
// flattened for storage.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is a resolved single-video transcript with its metadata header.
type Transcript struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Text     string `json:"transcript"`
	Language string `json:"language"`
}
