package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
)

type SuccessResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Pagination mirrors the listing block clients already consume. Exactly one
// of TotalOrder and TotalProducts is set.
type Pagination struct {
	CurrentPage   int    `json:"currentPage"`
	TotalPage     int64  `json:"totalPage"`
	TotalOrder    *int64 `json:"totalOrder,omitempty"`
	TotalProducts *int64 `json:"totalProducts,omitempty"`
	HasNextPage   bool   `json:"hasNextPage"`
	HasPrevPage   bool   `json:"hasPrevPage"`
}

func newPagination(page domain.Page, total int64) Pagination {
	totalPage := (total + int64(page.Limit) - 1) / int64(page.Limit)
	return Pagination{
		CurrentPage: page.Number,
		TotalPage:   totalPage,
		HasNextPage: int64(page.Number) < totalPage,
		HasPrevPage: page.Number > 1,
	}
}

func orderPagination(page domain.Page, total int64) *Pagination {
	p := newPagination(page, total)
	p.TotalOrder = &total
	return &p
}

func productPagination(page domain.Page, total int64) *Pagination {
	p := newPagination(page, total)
	p.TotalProducts = &total
	return &p
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

// respondError writes the coded error. Internal and dependency failures are
// logged and replaced by their public message.
func respondError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Internal(err, "unexpected error")
	}

	meta := apperr.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.Expose && typed.Message() != "" {
		msg = typed.Message()
	}

	if !meta.Expose && log != nil {
		ctx = log.WithField(ctx, "error_code", string(typed.Code()))
		log.Error(ctx, "request.error", err)
	}

	payload := ErrorResponse{Success: false, Error: msg, Code: string(typed.Code())}
	if meta.Expose {
		payload.Details = typed.Details()
	}
	respondJSON(w, meta.HTTPStatus, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Wrap(apperr.CodeValidation, err, "Request body too large")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "Invalid JSON body")
	}
	return nil
}

func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}
