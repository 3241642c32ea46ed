// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"adminkit/internal/domain"
)

// --- List Query ---

// ListQuery carries the list parameters of the query string. Malformed
// numbers are replaced by defaults before they get here.
type ListQuery struct {
	Page   int    `form:"page"`
	Size   int    `form:"size"`
	Sort   string `form:"sort"`
	Dir    string `form:"dir"`
	Search string `form:"q"`
}

// ToRequest converts the query to an engine list request.
func (q ListQuery) ToRequest() domain.ListRequest {
	return domain.ListRequest{
		Page:   q.Page,
		Size:   q.Size,
		Sort:   q.Sort,
		Dir:    q.Dir,
		Search: q.Search,
	}
}

// --- Save Response ---

// SaveResponse is returned after an upsert.
type SaveResponse struct {
	ID     string `json:"id"`
	Entity any    `json:"entity"`
	URL    string `json:"url"`
}

// --- History ---

// HistoryResponse lists audit entries of one instance, newest first.
type HistoryResponse struct {
	Entity  string `json:"entity"`
	ID      string `json:"id"`
	Entries any    `json:"entries"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
