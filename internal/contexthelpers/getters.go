package contexthelpers

import (
	"context"

	"github.com/myrjola/petracoach/internal/i18n"
)

// UserID returns the id of the user the request acts for, or "" when the request is anonymous.
func UserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	if !ok {
		return ""
	}

	return userID
}

// Language returns the negotiated content language, falling back to [i18n.DefaultLanguage].
func Language(ctx context.Context) i18n.Language {
	language, ok := ctx.Value(LanguageContextKey).(i18n.Language)
	if !ok {
		return i18n.DefaultLanguage
	}

	return language
}

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(CurrentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}
