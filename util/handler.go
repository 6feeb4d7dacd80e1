package util

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

var guardLogger = logrus.New()

func init() {
	guardLogger.SetFormatter(&logrus.JSONFormatter{})
	guardLogger.SetOutput(os.Stderr)
}

// ToolHandlerFunc is the handler shape accepted by the MCP server.
type ToolHandlerFunc = func(arguments map[string]interface{}) (*mcp.CallToolResult, error)

// ErrorGuard wraps a tool handler so a panic inside the handler is
// reported as a tool error instead of killing the server process.
func ErrorGuard(handler ToolHandlerFunc) ToolHandlerFunc {
	return func(arguments map[string]interface{}) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				guardLogger.WithFields(logrus.Fields{
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("tool handler panicked")
				result = mcp.NewToolResultError(fmt.Sprintf("internal error: %v", r))
				err = nil
			}
		}()
		return handler(arguments)
	}
}
