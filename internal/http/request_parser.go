// Package http provides the JSON API surface: router, handlers, auth
// middleware and request/response mapping.
//
// This file parses and validates incoming request data: listing query
// parameters into a transaction filter, and multipart payloads into
// mutation parameters. Malformed input surfaces as a validation error so
// the response mapping stays uniform.

package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tally/internal/core"
	"tally/internal/services"
)

// maxMultipartMemory bounds how much of a multipart body is held in memory
// before spilling to temp files.
const maxMultipartMemory = 32 << 20

type listQuery struct {
	Filter core.TransactionFilter
	Limit  int64
	Offset int64
}

// parseListQuery reads the listing parameters. Absent values place no
// restriction; limit falls back to the configured default and is clamped to
// the configured maximum.
func (s *Server) parseListQuery(query url.Values) (listQuery, error) {
	out := listQuery{Limit: s.defaultPageSize}

	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: startDate %q", core.ErrInvalidDate, v)
		}
		out.Filter.StartDate = &d
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: endDate %q", core.ErrInvalidDate, v)
		}
		out.Filter.EndDate = &d
	}

	if v := strings.TrimSpace(query.Get("categoryIds")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return listQuery{}, fmt.Errorf("%w: categoryIds element %q", core.ErrValidation, part)
			}
			out.Filter.CategoryIDs = append(out.Filter.CategoryIDs, id)
		}
	}

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t := core.TransactionType(v)
		out.Filter.Type = &t
	}

	if v := strings.TrimSpace(query.Get("minAmount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: minAmount %q", core.ErrInvalidAmount, v)
		}
		out.Filter.MinCents = &cents
	}
	if v := strings.TrimSpace(query.Get("maxAmount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: maxAmount %q", core.ErrInvalidAmount, v)
		}
		out.Filter.MaxCents = &cents
	}

	out.Filter.Search = strings.TrimSpace(query.Get("search"))
	out.Filter.SortBy = strings.TrimSpace(query.Get("sortBy"))
	out.Filter.SortDir = strings.TrimSpace(query.Get("order"))

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: limit %q", core.ErrInvalidPage, v)
		}
		out.Limit = n
	}
	if v := strings.TrimSpace(query.Get("offset")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: offset %q", core.ErrInvalidPage, v)
		}
		out.Offset = n
	}
	if out.Limit > s.maxPageSize {
		out.Limit = s.maxPageSize
	}

	return out, nil
}

// parseCreateForm reads the multipart payload for transaction creation:
// categoryId, amount and date are required, note and files optional.
func parseCreateForm(r *http.Request) (services.AddParams, error) {
	if err := parseBody(r); err != nil {
		return services.AddParams{}, err
	}

	var p services.AddParams

	categoryID, err := requiredInt(r, "categoryId")
	if err != nil {
		return services.AddParams{}, err
	}
	p.CategoryID = categoryID

	amount := strings.TrimSpace(r.FormValue("amount"))
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return services.AddParams{}, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, amount)
	}
	p.Amount = core.Money{Cents: cents}

	date := strings.TrimSpace(r.FormValue("date"))
	d, err := core.ParseDate(date)
	if err != nil {
		return services.AddParams{}, fmt.Errorf("%w: date %q", core.ErrInvalidDate, date)
	}
	p.Date = d

	p.Note = strings.TrimSpace(r.FormValue("note"))

	p.Files, err = readFiles(r)
	if err != nil {
		return services.AddParams{}, err
	}
	return p, nil
}

// parseUpdateForm reads the sparse patch for a transaction: any subset of
// the field values, attachment ids to delete, and new files. Field presence
// is what marks a change, so a posted empty note clears the note.
func parseUpdateForm(r *http.Request) (services.UpdateParams, error) {
	if err := parseBody(r); err != nil {
		return services.UpdateParams{}, err
	}

	var p services.UpdateParams

	if hasField(r, "categoryId") {
		categoryID, err := requiredInt(r, "categoryId")
		if err != nil {
			return services.UpdateParams{}, err
		}
		p.CategoryID = &categoryID
	}
	if hasField(r, "amount") {
		amount := strings.TrimSpace(r.FormValue("amount"))
		cents, err := core.ParseDecimalToCents(amount)
		if err != nil {
			return services.UpdateParams{}, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, amount)
		}
		p.Amount = &core.Money{Cents: cents}
	}
	if hasField(r, "date") {
		date := strings.TrimSpace(r.FormValue("date"))
		d, err := core.ParseDate(date)
		if err != nil {
			return services.UpdateParams{}, fmt.Errorf("%w: date %q", core.ErrInvalidDate, date)
		}
		p.Date = &d
	}
	if hasField(r, "note") {
		note := strings.TrimSpace(r.FormValue("note"))
		p.Note = &note
	}

	if v := strings.TrimSpace(r.FormValue("deleteAttachmentIds")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return services.UpdateParams{}, fmt.Errorf("%w: deleteAttachmentIds element %q", core.ErrValidation, part)
			}
			p.DeleteAttachmentIDs = append(p.DeleteAttachmentIDs, id)
		}
	}

	files, err := readFiles(r)
	if err != nil {
		return services.UpdateParams{}, err
	}
	p.Files = files
	return p, nil
}

// parseBody parses multipart bodies when present and plain forms otherwise,
// so field-only patches do not need multipart encoding.
func parseBody(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return fmt.Errorf("%w: malformed multipart body", core.ErrValidation)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: malformed request body", core.ErrValidation)
	}
	return nil
}

func hasField(r *http.Request, key string) bool {
	if r.MultipartForm != nil {
		if _, ok := r.MultipartForm.Value[key]; ok {
			return true
		}
	}
	if r.PostForm != nil {
		if _, ok := r.PostForm[key]; ok {
			return true
		}
	}
	return false
}

func requiredInt(r *http.Request, key string) (int64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", core.ErrValidation, key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", core.ErrValidation, key, v)
	}
	return n, nil
}

// readFiles collects every part posted under the "files" key.
func readFiles(r *http.Request) ([]core.FileUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var uploads []core.FileUpload
	for _, fh := range r.MultipartForm.File["files"] {
		upload, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) (core.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return core.FileUpload{}, fmt.Errorf("%w: unreadable file part %q", core.ErrValidation, fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.FileUpload{}, fmt.Errorf("read file part %q: %w", fh.Filename, err)
	}

	fileType := fh.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return core.FileUpload{
		FileName: fh.Filename,
		FileType: fileType,
		Data:     data,
	}, nil
}
