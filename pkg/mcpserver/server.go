// Package mcpserver exposes the grounded search capability as an MCP tool
// over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/grounded-search/pkg/search"
)

const toolDescription = `Search Google via Gemini grounding for current, factual information with source citations.

Use for: current events, fact checking, and knowledge beyond your training data.
Prefer multiple narrow keyword queries over one broad conversational question.`

// SearchArgs are the tool arguments. Tuning fields mirror the configuration
// defaults when omitted.
type SearchArgs struct {
	Query          string   `json:"query" jsonschema:"The search query. Keyword queries work better than conversational questions."`
	Model          string   `json:"model,omitempty" jsonschema:"Gemini model to use."`
	RetryCount     *int     `json:"retry_count,omitempty" jsonschema:"Retry attempts on failure."`
	RetryDelay     *float64 `json:"retry_delay,omitempty" jsonschema:"Base retry delay in seconds."`
	SearchDelayMin *float64 `json:"search_delay_min,omitempty" jsonschema:"Minimum random pre-search delay in seconds."`
	SearchDelayMax *float64 `json:"search_delay_max,omitempty" jsonschema:"Maximum random pre-search delay in seconds."`
}

// New builds the MCP server with the google_search tool registered.
func New(client *search.Client, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gemini-grounding",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "google_search",
		Description: toolDescription,
	}, handler(client))

	return server
}

func handler(client *search.Client) func(context.Context, *mcp.CallToolRequest, SearchArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
		q := client.NewQuery(args.Query)
		if args.Model != "" {
			q.Model = args.Model
		}
		if args.RetryCount != nil {
			q.RetryCount = *args.RetryCount
		}
		if args.RetryDelay != nil {
			q.RetryDelay = time.Duration(*args.RetryDelay * float64(time.Second))
		}
		if args.SearchDelayMin != nil {
			q.SearchDelayMin = time.Duration(*args.SearchDelayMin * float64(time.Second))
		}
		if args.SearchDelayMax != nil {
			q.SearchDelayMax = time.Duration(*args.SearchDelayMax * float64(time.Second))
		}

		result, err := client.Search(ctx, q)
		if err != nil {
			return textResult(renderError(err)), nil, nil
		}
		return textResult(result.Markdown()), nil, nil
	}
}

// renderError keeps failures inside the tool reply so clients see a readable
// message. Endpoint URLs are redacted before display.
func renderError(err error) string {
	var cfgErr *search.ConfigError
	if errors.As(err, &cfgErr) {
		return fmt.Sprintf("Invalid parameters: %s", cfgErr.Error())
	}
	return fmt.Sprintf("Search failed: %s", search.RedactURLs(err.Error()))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
