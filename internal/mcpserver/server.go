package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all LessonPay tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("lessonpay", "0.1.0")
	client := NewLessonPayClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolGetRequest, h.HandleGetRequest)
	s.AddTool(ToolListRequests, h.HandleListRequests)
	s.AddTool(ToolCreateRequest, h.HandleCreateRequest)
	s.AddTool(ToolAcceptRequest, h.HandleAcceptRequest)
	s.AddTool(ToolInitiateEscrow, h.HandleInitiateEscrow)
	s.AddTool(ToolCaptureEscrow, h.HandleCaptureEscrow)
	s.AddTool(ToolCancelEscrow, h.HandleCancelEscrow)
	s.AddTool(ToolGetProfile, h.HandleGetProfile)

	return s
}
