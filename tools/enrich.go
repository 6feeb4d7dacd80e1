package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Alterya/Globe/pkg/enrich"
	"github.com/Alterya/Globe/util"
)

func RegisterEnrichTools(s *server.MCPServer) {
	sameIPTool := mcp.NewTool("find_same_ip_domains",
		mcp.WithDescription("Find domains that share hosting infrastructure with the given domain, using urlscan.io search. Results are scored for lookalike similarity against the input domain."),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("Domain to search shared-IP neighbors for (e.g. example.com)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of neighbor domains to return (default 100)"),
		),
	)
	s.AddTool(sameIPTool, util.ErrorGuard(sameIPDomainsHandler))

	captureTool := mcp.NewTool("capture_page",
		mcp.WithDescription("Fetch a suspect page and return its title plus a short markdown summary of the visible content."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The complete HTTP/HTTPS URL of the page to capture"),
		),
	)
	s.AddTool(captureTool, util.ErrorGuard(capturePageHandler))
}

func sameIPDomainsHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	domain, ok := arguments["domain"].(string)
	if !ok || domain == "" {
		return mcp.NewToolResultError("domain must be a non-empty string"), nil
	}

	limit := 100
	if v, ok := arguments["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	client := enrich.NewURLScanClient()
	neighbors, err := client.SameIPDomains(context.Background(), domain, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("same-IP search failed: %s", err)), nil
	}

	payload := map[string]interface{}{
		"domain":     domain,
		"neighbors":  len(neighbors),
		"candidates": enrich.AnalyzeCandidates(domain, neighbors),
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %s", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func capturePageHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	pageURL, ok := arguments["url"].(string)
	if !ok || pageURL == "" {
		return mcp.NewToolResultError("url must be a non-empty string"), nil
	}

	capture, err := enrich.CapturePage(context.Background(), pageURL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to capture page: %s", err)), nil
	}

	out, err := json.MarshalIndent(capture, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode capture: %s", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
