// LessonPay MCP Server - Exposes LessonPay capabilities as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/knakagawa/lessonpay/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL: envOrDefault("LESSONPAY_API_URL", "http://localhost:8080"),
		UserID: os.Getenv("LESSONPAY_USER_ID"),
	}

	if cfg.UserID == "" {
		fmt.Fprintln(os.Stderr, "LESSONPAY_USER_ID is required")
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
