// Package tools builds the invokable tools exposed to the request agent.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/cloudwego/eino-ext/components/tool/bingsearch"
	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"

	"github.com/mnemo-ai/mnemo/internal/config"
)

const (
	searchToolName = "web_search"
	searchToolDesc = "Search the web. Returns titles, URLs, and snippets for the query."
)

// NewWebSearch creates the web search tool for the configured driver.
func NewWebSearch(ctx context.Context, cfg config.WebSearchConfig) (tool.InvokableTool, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	switch cfg.Driver {
	case "", "duckduckgo":
		return duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
			ToolName:   searchToolName,
			ToolDesc:   searchToolDesc,
			MaxResults: maxResults,
			Timeout:    timeout,
		})
	case "bing":
		if cfg.BingAPIKey == "" {
			return nil, fmt.Errorf("websearch driver bing requires bing_api_key")
		}
		return bingsearch.NewTool(ctx, &bingsearch.Config{
			APIKey:     cfg.BingAPIKey,
			MaxResults: maxResults,
			ToolName:   searchToolName,
			ToolDesc:   searchToolDesc,
			Timeout:    timeout,
		})
	case "google":
		if cfg.GoogleAPIKey == "" || cfg.GoogleCX == "" {
			return nil, fmt.Errorf("websearch driver google requires google_api_key and google_cx")
		}
		return googlesearch.NewTool(ctx, &googlesearch.Config{
			APIKey:         cfg.GoogleAPIKey,
			SearchEngineID: cfg.GoogleCX,
			Num:            maxResults,
			ToolName:       searchToolName,
			ToolDesc:       searchToolDesc,
		})
	default:
		return nil, fmt.Errorf("unknown websearch driver: %s", cfg.Driver)
	}
}
