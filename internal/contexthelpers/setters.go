package contexthelpers

import (
	"context"
	"net/http"

	"github.com/myrjola/petracoach/internal/i18n"
)

func SetUserID(r *http.Request, userID string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetLanguage(r *http.Request, language i18n.Language) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, LanguageContextKey, language)
	return r.WithContext(ctx)
}
