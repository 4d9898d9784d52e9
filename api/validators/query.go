package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
)

func fieldError(msg, field string, extra map[string]any) error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseQueryInt returns def when key is absent and rejects values outside [min, max].
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := query(r, key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError("query parameter must be an integer", key, nil)
	}
	if v < min || v > max {
		return 0, fieldError("query parameter out of range", key, map[string]any{"min": min, "max": max})
	}
	return v, nil
}

// ParseQueryEnum upper-cases the value before handing it to parse. An absent
// key yields nil so callers can tell "no filter" from a zero value.
func ParseQueryEnum[T ~string](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := query(r, key)
	if raw == "" {
		return nil, nil
	}
	v, err := parse(strings.ToUpper(raw))
	if err != nil {
		return nil, fieldError("unsupported "+key+" filter", key, map[string]any{"value": raw})
	}
	return &v, nil
}

func ParsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: query(r, "cursor")}, nil
}

// ParseUUIDParam reads a chi route parameter.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fieldError("invalid path parameter", key, nil)
	}
	return id, nil
}
