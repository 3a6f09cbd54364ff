package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/services"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
	"github.com/nimasrn/dues-ledger/pkg/logger"
)

const (
	CodeInvalidJSON       = "invalid_json"
	CodeValidation        = "validation_failed"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeInvalidState      = "invalid_state"
	CodeTransactionFailed = "transaction_failed"
	CodeInternal          = "internal_error"
)

type errorResponse struct {
	Error  string                   `json:"error"`
	Code   string                   `json:"code"`
	Fields []*model.ValidationError `json:"fields,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// readJSON decodes the body into dst and rejects unknown fields and
// trailing data.
func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(ctx.PostBody()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", "error", err, "path", string(ctx.Path()))
		status = xhttp.StatusInternalServerError
		b = []byte(`{"error":"failed to encode response","code":"internal_error"}`)
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeBadJSON(ctx *xhttp.RequestCtx, err error) {
	writeJSON(ctx, xhttp.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error(), Code: CodeInvalidJSON})
}

// writeError maps the service error taxonomy onto HTTP.
func writeError(ctx *xhttp.RequestCtx, err error) {
	resp := errorResponse{Error: err.Error()}
	var status int
	switch {
	case errors.Is(err, services.ErrValidation):
		status, resp.Code = xhttp.StatusBadRequest, CodeValidation
		resp.Fields = model.Fields(err)
	case errors.Is(err, services.ErrNotFound):
		status, resp.Code = xhttp.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrInvalidState):
		status, resp.Code = xhttp.StatusConflict, CodeInvalidState
	case errors.Is(err, services.ErrConflict):
		status, resp.Code = xhttp.StatusConflict, CodeConflict
	case errors.Is(err, services.ErrTransactionFailed):
		status, resp.Code = xhttp.StatusInternalServerError, CodeTransactionFailed
		resp.Error = "transaction failed"
	default:
		status, resp.Code = xhttp.StatusInternalServerError, CodeInternal
		resp.Error = "internal error"
	}
	if status >= xhttp.StatusInternalServerError {
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
	}
	writeJSON(ctx, status, resp)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// pathID reads the {id} route parameter.
func pathID(ctx *xhttp.RequestCtx) (int64, error) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func queryInt(ctx *xhttp.RequestCtx, key string) (int, error) {
	v := query(ctx, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

func queryTime(ctx *xhttp.RequestCtx, key string) (*time.Time, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, model.NewValidationError(key, "must be RFC3339 or YYYY-MM-DD")
	}
	return &t, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
