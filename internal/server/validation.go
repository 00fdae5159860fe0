package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"drifttapes/internal/browse"

	"github.com/sirupsen/logrus"
)

const (
	// maxBodyBytes bounds every JSON request body
	maxBodyBytes = 64 << 10
	// maxSearchQueryLength is counted in characters, not bytes
	maxSearchQueryLength = 200
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as JSON with the given status code
func (ms *StoreServer) respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ms.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (ms *StoreServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ms.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	ms.respondJSON(w, http.StatusBadRequest, ValidationResult{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response
func (ms *StoreServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	ms.respondJSON(w, statusCode, map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// decodeJSONBody decodes a bounded JSON request body into v. It reports a
// validation error when the body is missing or malformed.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) *ValidationError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ValidationError{
			Field:   "body",
			Message: "Request body must be valid JSON",
			Code:    "INVALID_JSON",
		}
	}
	return nil
}

// validateSearchQuery validates search query parameters
func validateSearchQuery(query string) *ValidationError {
	if utf8.RuneCountInString(query) > maxSearchQueryLength {
		return &ValidationError{
			Field:   "q",
			Message: "Search query too long (max 200 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "q",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// validateYear parses the optional year filter. Empty means no filter.
func validateYear(value string) (int, *ValidationError) {
	if value == "" {
		return 0, nil
	}

	year, err := strconv.Atoi(value)
	if err != nil || year <= 0 {
		return 0, &ValidationError{
			Field:   "year",
			Message: "Year must be a positive integer",
			Code:    "INVALID_YEAR",
		}
	}
	return year, nil
}

// validateSortKey parses the optional sort parameter
func validateSortKey(value string) (browse.SortKey, *ValidationError) {
	key, err := browse.ParseSortKey(value)
	if err != nil {
		return "", &ValidationError{
			Field:   "sort",
			Message: "Sort must be one of " + strings.Join(sortKeyNames(), ", "),
			Code:    "INVALID_SORT_KEY",
		}
	}
	return key, nil
}

func sortKeyNames() []string {
	names := make([]string, 0, len(browse.SortKeys))
	for _, key := range browse.SortKeys {
		names = append(names, string(key))
	}
	return names
}

// validateQueueIndex parses a queue position from the URL path
func validateQueueIndex(value string) (int, *ValidationError) {
	if value == "" {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Queue index is required",
			Code:    "MISSING_QUEUE_INDEX",
		}
	}

	index, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Queue index must be a valid integer",
			Code:    "INVALID_QUEUE_INDEX_FORMAT",
		}
	}

	if index < 0 {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Queue index cannot be negative",
			Code:    "INVALID_QUEUE_INDEX_VALUE",
		}
	}

	return index, nil
}

// validateAlbumID checks that an album id was supplied
func validateAlbumID(albumID string) *ValidationError {
	if strings.TrimSpace(albumID) == "" {
		return &ValidationError{
			Field:   "albumId",
			Message: "Album ID is required",
			Code:    "MISSING_ALBUM_ID",
		}
	}
	return nil
}

// validateVolume checks a volume level is within 0..1
func validateVolume(volume float64) *ValidationError {
	if volume < 0 || volume > 1 {
		return &ValidationError{
			Field:   "volume",
			Message: "Volume must be between 0 and 1",
			Code:    "INVALID_VOLUME",
		}
	}
	return nil
}

// sanitizeInput strips null bytes and surrounding whitespace
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
