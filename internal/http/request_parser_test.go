package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tally/internal/core"
)

func testServer() *Server {
	return &Server{defaultPageSize: 20, maxPageSize: 100}
}

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := testServer().parseListQuery(url.Values{})
	if err != nil {
		t.Fatalf("parseListQuery() error = %v", err)
	}

	if q.Limit != 20 {
		t.Errorf("Limit = %d, want 20", q.Limit)
	}
	if q.Offset != 0 {
		t.Errorf("Offset = %d, want 0", q.Offset)
	}
	if q.Filter.StartDate != nil || q.Filter.EndDate != nil {
		t.Error("empty query should leave date bounds nil")
	}
	if len(q.Filter.CategoryIDs) != 0 {
		t.Errorf("CategoryIDs = %v, want empty", q.Filter.CategoryIDs)
	}
}

func TestParseListQuery_FullFilter(t *testing.T) {
	values := url.Values{
		"startDate":   {"2025-01-01"},
		"endDate":     {"2025-01-31"},
		"categoryIds": {"3, 7,11"},
		"type":        {"expense"},
		"minAmount":   {"10.00"},
		"maxAmount":   {"99.99"},
		"search":      {"coffee"},
		"sortBy":      {"amount"},
		"order":       {"asc"},
		"limit":       {"50"},
		"offset":      {"100"},
	}

	q, err := testServer().parseListQuery(values)
	if err != nil {
		t.Fatalf("parseListQuery() error = %v", err)
	}

	if got := q.Filter.StartDate.String(); got != "2025-01-01" {
		t.Errorf("StartDate = %q, want '2025-01-01'", got)
	}
	if got := q.Filter.EndDate.String(); got != "2025-01-31" {
		t.Errorf("EndDate = %q, want '2025-01-31'", got)
	}
	if len(q.Filter.CategoryIDs) != 3 || q.Filter.CategoryIDs[0] != 3 || q.Filter.CategoryIDs[1] != 7 || q.Filter.CategoryIDs[2] != 11 {
		t.Errorf("CategoryIDs = %v, want [3 7 11]", q.Filter.CategoryIDs)
	}
	if q.Filter.Type == nil || *q.Filter.Type != core.Expense {
		t.Errorf("Type = %v, want expense", q.Filter.Type)
	}
	if q.Filter.MinCents == nil || *q.Filter.MinCents != 1000 {
		t.Errorf("MinCents = %v, want 1000", q.Filter.MinCents)
	}
	if q.Filter.MaxCents == nil || *q.Filter.MaxCents != 9999 {
		t.Errorf("MaxCents = %v, want 9999", q.Filter.MaxCents)
	}
	if q.Filter.Search != "coffee" {
		t.Errorf("Search = %q, want 'coffee'", q.Filter.Search)
	}
	if q.Filter.SortBy != "amount" || q.Filter.SortDir != "asc" {
		t.Errorf("sort = %q %q, want 'amount' 'asc'", q.Filter.SortBy, q.Filter.SortDir)
	}
	if q.Limit != 50 {
		t.Errorf("Limit = %d, want 50", q.Limit)
	}
	if q.Offset != 100 {
		t.Errorf("Offset = %d, want 100", q.Offset)
	}
}

func TestParseListQuery_ClampsLimit(t *testing.T) {
	q, err := testServer().parseListQuery(url.Values{"limit": {"5000"}})
	if err != nil {
		t.Fatalf("parseListQuery() error = %v", err)
	}
	if q.Limit != 100 {
		t.Errorf("Limit = %d, want clamp to 100", q.Limit)
	}
}

func TestParseListQuery_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		wantErr error
	}{
		{"malformed start date", url.Values{"startDate": {"01/02/2025"}}, core.ErrInvalidDate},
		{"malformed end date", url.Values{"endDate": {"soon"}}, core.ErrInvalidDate},
		{"non-numeric category id", url.Values{"categoryIds": {"3,x"}}, core.ErrValidation},
		{"bad min amount", url.Values{"minAmount": {"ten"}}, core.ErrInvalidAmount},
		{"bad max amount", url.Values{"maxAmount": {"9.9.9"}}, core.ErrInvalidAmount},
		{"non-numeric limit", url.Values{"limit": {"many"}}, core.ErrInvalidPage},
		{"non-numeric offset", url.Values{"offset": {"1.5"}}, core.ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testServer().parseListQuery(tt.values)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error %v should wrap the validation base", err)
			}
		})
	}
}

// multipartRequest builds a POST with the given fields and files encoded as
// multipart/form-data.
func multipartRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %q: %v", key, err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create file part %q: %v", name, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write file part %q: %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestParseCreateForm(t *testing.T) {
	req := multipartRequest(t,
		map[string]string{
			"categoryId": "4",
			"amount":     "12.34",
			"date":       "2025-02-10",
			"note":       "  lunch  ",
		},
		map[string][]byte{"receipt.pdf": []byte("pdf bytes")},
	)

	p, err := parseCreateForm(req)
	if err != nil {
		t.Fatalf("parseCreateForm() error = %v", err)
	}

	if p.CategoryID != 4 {
		t.Errorf("CategoryID = %d, want 4", p.CategoryID)
	}
	if p.Amount.Cents != 1234 {
		t.Errorf("Amount = %d cents, want 1234", p.Amount.Cents)
	}
	if got := p.Date.String(); got != "2025-02-10" {
		t.Errorf("Date = %q, want '2025-02-10'", got)
	}
	if p.Note != "lunch" {
		t.Errorf("Note = %q, want trimmed 'lunch'", p.Note)
	}
	if len(p.Files) != 1 {
		t.Fatalf("Files = %d entries, want 1", len(p.Files))
	}
	if p.Files[0].FileName != "receipt.pdf" {
		t.Errorf("FileName = %q, want 'receipt.pdf'", p.Files[0].FileName)
	}
	if string(p.Files[0].Data) != "pdf bytes" {
		t.Errorf("Data = %q, want 'pdf bytes'", p.Files[0].Data)
	}
	if p.Files[0].FileType == "" {
		t.Error("FileType should never be empty")
	}
}

func TestParseCreateForm_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		wantErr error
	}{
		{"missing category", map[string]string{"amount": "5.00", "date": "2025-02-10"}, core.ErrValidation},
		{"bad amount", map[string]string{"categoryId": "4", "amount": "free", "date": "2025-02-10"}, core.ErrInvalidAmount},
		{"bad date", map[string]string{"categoryId": "4", "amount": "5.00", "date": "tomorrow"}, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCreateForm(multipartRequest(t, tt.fields, nil))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseUpdateForm_PresenceMarksChanges(t *testing.T) {
	// A posted empty note is a clear request; an absent note is no change.
	req := multipartRequest(t,
		map[string]string{
			"note":                "",
			"deleteAttachmentIds": "9, 12",
		},
		nil,
	)

	p, err := parseUpdateForm(req)
	if err != nil {
		t.Fatalf("parseUpdateForm() error = %v", err)
	}

	if p.Note == nil || *p.Note != "" {
		t.Errorf("Note = %v, want pointer to empty string", p.Note)
	}
	if p.CategoryID != nil || p.Amount != nil || p.Date != nil {
		t.Error("absent fields should stay nil")
	}
	if len(p.DeleteAttachmentIDs) != 2 || p.DeleteAttachmentIDs[0] != 9 || p.DeleteAttachmentIDs[1] != 12 {
		t.Errorf("DeleteAttachmentIDs = %v, want [9 12]", p.DeleteAttachmentIDs)
	}
}

func TestParseUpdateForm_PlainFormPatch(t *testing.T) {
	// Field-only patches can skip multipart encoding entirely.
	body := "amount=7.50&date=2025-03-01"
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/transactions/1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p, err := parseUpdateForm(req)
	if err != nil {
		t.Fatalf("parseUpdateForm() error = %v", err)
	}

	if p.Amount == nil || p.Amount.Cents != 750 {
		t.Errorf("Amount = %v, want 750 cents", p.Amount)
	}
	if p.Date == nil || p.Date.String() != "2025-03-01" {
		t.Errorf("Date = %v, want 2025-03-01", p.Date)
	}
	if p.Note != nil {
		t.Errorf("Note = %v, want nil", p.Note)
	}
	if len(p.Files) != 0 {
		t.Errorf("Files = %d entries, want 0", len(p.Files))
	}
}

func TestParseUpdateForm_BadAttachmentIDs(t *testing.T) {
	req := multipartRequest(t, map[string]string{"deleteAttachmentIds": "9,oops"}, nil)

	_, err := parseUpdateForm(req)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}
