// This file maps domain results onto the wire: JSON envelopes for pages and
// mutations, and the translation of the error taxonomy to status codes.
// Monetary amounts travel as decimal strings and dates as YYYY-MM-DD;
// floats never appear.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

type attachmentResponse struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	URL      string `json:"url"`
}

type transactionResponse struct {
	ID           int64                `json:"id"`
	CategoryID   int64                `json:"categoryId"`
	CategoryName string               `json:"categoryName,omitempty"`
	CategoryType string               `json:"categoryType,omitempty"`
	Amount       string               `json:"amount"`
	Note         string               `json:"note,omitempty"`
	Date         string               `json:"date"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Attachments  []attachmentResponse `json:"attachments"`
}

type pageResponse struct {
	Items   []transactionResponse `json:"items"`
	Total   int64                 `json:"total"`
	HasMore bool                  `json:"hasMore"`
	Limit   int64                 `json:"limit"`
	Offset  int64                 `json:"offset"`
}

type createResponse struct {
	Transaction       transactionResponse `json:"transaction"`
	SkippedDuplicates []string            `json:"skippedDuplicates"`
}

type updateResponse struct {
	Transaction       transactionResponse  `json:"transaction"`
	AddedAttachments  []attachmentResponse `json:"addedAttachments"`
	SkippedDuplicates []string             `json:"skippedDuplicates"`
	CleanupFailed     []string             `json:"cleanupFailed"`
}

type deleteResponse struct {
	CleanupFailed []string `json:"cleanupFailed"`
}

type categoryResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	OwnerID *int64 `json:"ownerId,omitempty"`
}

func buildAttachments(attachments []core.Attachment) []attachmentResponse {
	out := make([]attachmentResponse, len(attachments))
	for i, a := range attachments {
		out[i] = attachmentResponse{
			ID:       a.ID,
			FileName: a.FileName,
			FilePath: a.FilePath,
			FileType: a.FileType,
			FileSize: a.FileSize,
			URL:      a.URL,
		}
	}
	return out
}

func buildTransaction(t core.Transaction, attachments []core.Attachment) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount.String(),
		Note:        t.Note,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Attachments: buildAttachments(attachments),
	}
}

func buildPage(page core.TransactionPage) pageResponse {
	items := make([]transactionResponse, len(page.Items))
	for i, d := range page.Items {
		item := buildTransaction(d.Transaction, d.Attachments)
		item.CategoryName = d.CategoryName
		item.CategoryType = string(d.CategoryType)
		items[i] = item
	}
	return pageResponse{
		Items:   items,
		Total:   page.Total,
		HasMore: page.HasMore(),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
}

func buildCreate(res services.AddResult) createResponse {
	return createResponse{
		Transaction:       buildTransaction(res.Transaction, res.Attachments),
		SkippedDuplicates: emptyIfNil(res.Skipped),
	}
}

func buildUpdate(res services.UpdateResult) updateResponse {
	return updateResponse{
		Transaction:       buildTransaction(res.Transaction, res.Attachments),
		AddedAttachments:  buildAttachments(res.Added),
		SkippedDuplicates: emptyIfNil(res.Skipped),
		CleanupFailed:     emptyIfNil(res.CleanupFailed),
	}
}

func buildDelete(res services.DeleteResult) deleteResponse {
	return deleteResponse{CleanupFailed: emptyIfNil(res.CleanupFailed)}
}

func buildCategories(categories []core.Category) []categoryResponse {
	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = categoryResponse{
			ID:      c.ID,
			Name:    c.Name,
			Type:    string(c.Type),
			OwnerID: c.OwnerID,
		}
	}
	return out
}

// emptyIfNil keeps list fields as [] on the wire instead of null.
func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError translates the error taxonomy: validation errors carry
// their own safe message, missing targets read as not found, everything
// else is logged and surfaces as an opaque failure.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
