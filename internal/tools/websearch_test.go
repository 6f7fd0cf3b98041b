package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/config"
)

func TestNewWebSearchDefaultDriver(t *testing.T) {
	ws, err := NewWebSearch(context.Background(), config.WebSearchConfig{})
	if err != nil {
		t.Fatalf("NewWebSearch: %v", err)
	}

	info, err := ws.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "web_search" {
		t.Errorf("tool name = %q, want web_search", info.Name)
	}
}

func TestNewWebSearchBingRequiresKey(t *testing.T) {
	_, err := NewWebSearch(context.Background(), config.WebSearchConfig{Driver: "bing"})
	if err == nil || !strings.Contains(err.Error(), "bing_api_key") {
		t.Fatalf("err = %v, want bing_api_key requirement", err)
	}
}

func TestNewWebSearchGoogleRequiresKeyAndCX(t *testing.T) {
	_, err := NewWebSearch(context.Background(), config.WebSearchConfig{
		Driver:       "google",
		GoogleAPIKey: "key-only",
	})
	if err == nil || !strings.Contains(err.Error(), "google_cx") {
		t.Fatalf("err = %v, want google_cx requirement", err)
	}
}

func TestNewWebSearchUnknownDriver(t *testing.T) {
	_, err := NewWebSearch(context.Background(), config.WebSearchConfig{Driver: "altavista"})
	if err == nil || !strings.Contains(err.Error(), "unknown websearch driver") {
		t.Fatalf("err = %v, want unknown driver", err)
	}
}
