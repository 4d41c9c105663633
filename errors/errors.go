package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Forbidden(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// SearchFailed indicates the external video search capability returned an error.
func SearchFailed(op string, err error) *AppError {
	return Internal(op, err, "Failed to process search results")
}

// NoMatchingVideos indicates a search produced no videos for the requested channel.
func NoMatchingVideos(op, channel string) *AppError {
	return NotFound(op, nil, fmt.Sprintf("No videos found for channel: %s", channel))
}

// TranscriptUnavailable indicates the transcript source could not produce a
// transcript for the video (captions disabled, no matching language, or not found).
func TranscriptUnavailable(op string, err error, videoID string) *AppError {
	return NotFound(op, err, fmt.Sprintf("Transcript unavailable for video: %s", videoID))
}

// AudioSourceMissing indicates audio synthesis was requested for a video whose
// transcript artifact has never been cached.
func AudioSourceMissing(op, videoID string) *AppError {
	return NotFound(op, nil, fmt.Sprintf("Transcript not found for video: %s", videoID))
}

// CredentialsError indicates the blob sync target rejected our credentials.
func CredentialsError(op string, err error) *AppError {
	return Forbidden(op, err, fmt.Sprintf("Error with storage credentials: %v", err))
}

func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == http.StatusNotFound
	}
	return false
}

// CodeOf returns the HTTP status carried by err, or 500 for unknown errors.
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
