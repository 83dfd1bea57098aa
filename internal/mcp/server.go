package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/juneyoungl/jot/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"capture_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"capture_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"capture_reclassify": {
		def:     reclassifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReclassify },
	},
	"capture_confirm": {
		def:     confirmToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConfirm },
	},
	"capture_confirm_all": {
		def:     confirmAllToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConfirmAll },
	},
	"capture_review_queue": {
		def:     reviewQueueToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReviewQueue },
	},
	"capture_save_review": {
		def:     saveReviewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveReview },
	},
	"capture_cancel_auto_accept": {
		def:     cancelAutoAcceptToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCancelAutoAccept },
	},
	"capture_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"capture_undo_delete": {
		def:     undoDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUndoDelete },
	},
	"capture_trash": {
		def:     trashToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrash },
	},
	"capture_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"capture_purge_trash": {
		def:     purgeTrashToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurgeTrash },
	},
	"capture_logs": {
		def:     logsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogs },
	},
	"capture_todos": {
		def:     todosToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTodos },
	},
	"capture_schedules": {
		def:     schedulesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSchedules },
	},
	"queue_status": {
		def:     queueStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueStatus },
	},
	"queue_dispatch": {
		def:     queueDispatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueDispatch },
	},
	"sync_run": {
		def:     syncRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSyncRun },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with jot tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jot",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(h, cfg, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
