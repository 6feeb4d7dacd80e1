package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/intel"
	"github.com/Alterya/Globe/pkg/query"
	"github.com/Alterya/Globe/services"
	"github.com/Alterya/Globe/util"
)

// defaultInterpreter is built on first use so the environment file has
// already been loaded by the time credentials are read.
var defaultInterpreter = sync.OnceValue(func() *query.Interpreter {
	return query.Default()
})

func RegisterNetworkTools(s *server.MCPServer) {
	queryTool := mcp.NewTool("query_network",
		mcp.WithDescription("Interpret a natural-language question about the intelligence network and return the resulting filter, insights, and the counts of matching records. Example questions: 'show only bitcoin addresses', 'remove ethereum', 'aggregate by domain'."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question about the network"),
		),
	)
	s.AddTool(queryTool, util.ErrorGuard(queryNetworkHandler))

	graphTool := mcp.NewTool("get_network_graph",
		mcp.WithDescription("Build the relationship graph from the loaded intelligence records and return it as JSON nodes and edges. An optional natural-language query filters the records first."),
		mcp.WithString("query",
			mcp.Description("Optional natural-language filter applied before building the graph"),
		),
	)
	s.AddTool(graphTool, util.ErrorGuard(getNetworkGraphHandler))

	statsTool := mcp.NewTool("network_stats",
		mcp.WithDescription("Summary statistics over the loaded intelligence records: totals, chain and discovery-method breakdowns, and enrichment coverage."),
	)
	s.AddTool(statsTool, util.ErrorGuard(networkStatsHandler))
}

func queryNetworkHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	text, ok := arguments["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query must be a string"), nil
	}

	records, err := services.DefaultIntelRecords()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load records: %s", err)), nil
	}

	analysis := defaultInterpreter().Interpret(context.Background(), text, records)
	filtered := query.Apply(records, analysis.Spec)
	network := graph.Build(filtered)

	payload := map[string]interface{}{
		"analysis":         analysis,
		"matching_records": len(filtered),
		"total_records":    len(records),
		"nodes":            len(network.Nodes),
		"edges":            len(network.Edges),
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %s", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func getNetworkGraphHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	records, err := services.DefaultIntelRecords()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load records: %s", err)), nil
	}

	if text, ok := arguments["query"].(string); ok && text != "" {
		analysis := defaultInterpreter().Interpret(context.Background(), text, records)
		records = query.Apply(records, analysis.Spec)
	}

	network := graph.Build(records)
	out, err := json.MarshalIndent(network, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode graph: %s", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func networkStatsHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	records, err := services.DefaultIntelRecords()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load records: %s", err)), nil
	}

	out, err := json.MarshalIndent(intel.Statistics(records), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode stats: %s", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
