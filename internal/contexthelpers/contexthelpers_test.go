package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/i18n"
)

func TestRequestValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/coach", nil)
	if got := contexthelpers.UserID(r.Context()); got != "" {
		t.Errorf("UserID on anonymous request = %q, want empty", got)
	}
	if got := contexthelpers.Language(r.Context()); got != i18n.DefaultLanguage {
		t.Errorf("Language default = %q, want %q", got, i18n.DefaultLanguage)
	}

	r = contexthelpers.SetUserID(r, "u-1")
	r = contexthelpers.SetLanguage(r, i18n.English)
	r = contexthelpers.SetCurrentPath(r, "/api/coach")

	if got := contexthelpers.UserID(r.Context()); got != "u-1" {
		t.Errorf("UserID = %q, want u-1", got)
	}
	if got := contexthelpers.Language(r.Context()); got != i18n.English {
		t.Errorf("Language = %q, want en", got)
	}
	if got := contexthelpers.CurrentPath(r.Context()); got != "/api/coach" {
		t.Errorf("CurrentPath = %q", got)
	}
}
