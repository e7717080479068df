package main

import (
	"net/http"
	"strings"
	"testing"
)

func Test_application_program(t *testing.T) {
	server := startServer(t)
	client := server.Client()
	ctx := t.Context()

	t.Run("program in requested language", func(t *testing.T) {
		var got programView
		status, err := client.GetJSON(ctx, "/api/program?lang=pl", &got)
		if err != nil || status != http.StatusOK {
			t.Fatalf("GET /api/program = %d, %v", status, err)
		}
		if got.ID != "strength-101" || got.Title != "Siła 101" || len(got.Phases) != 2 {
			t.Fatalf("program = %+v", got)
		}
		if got.Phases[1].Name != "Budowa" || got.Phases[1].TotalDays != 14 {
			t.Errorf("second phase = %+v", got.Phases[1])
		}
	})

	t.Run("markdown", func(t *testing.T) {
		var got markdownView
		status, err := client.GetJSON(ctx, "/api/program/markdown?path=recovery/foundation.md", &got)
		if err != nil || status != http.StatusOK {
			t.Fatalf("GET markdown = %d, %v", status, err)
		}
		if !strings.Contains(got.HTML, "<h1>Rest well</h1>") || strings.Contains(got.HTML, "title:") {
			t.Errorf("html = %q", got.HTML)
		}
	})

	t.Run("missing markdown", func(t *testing.T) {
		status, err := client.GetJSON(ctx, "/api/program/markdown?path=missing.md", nil)
		if err != nil {
			t.Fatalf("GET markdown: %v", err)
		}
		if status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})
}
