package controllers

import (
	"net/http"

	"github.com/moda-commerce/moda-backend/api/middleware"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

func principalFromRequest(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || !p.Valid() {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
