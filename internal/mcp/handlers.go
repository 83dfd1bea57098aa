package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
	"github.com/juneyoungl/jot/internal/outbox"
	"github.com/juneyoungl/jot/internal/syncer"
)

// Handlers holds dependencies for MCP tool handlers. The sync
// coordinator is nil when no sync endpoint is configured.
type Handlers struct {
	db         *sql.DB
	engine     *engine.Engine
	dispatcher *outbox.Dispatcher
	sync       *syncer.Coordinator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, e *engine.Engine, d *outbox.Dispatcher, s *syncer.Coordinator) *Handlers {
	return &Handlers{db: database, engine: e, dispatcher: d, sync: s}
}

// Request types for each tool

// CreateRequest represents the arguments for capture_create.
type CreateRequest struct {
	Text            string  `json:"text"`
	Source          string  `json:"source,omitempty"`
	ImageURI        *string `json:"image_uri,omitempty"`
	ParentCaptureID *string `json:"parent_capture_id,omitempty"`
}

// GetRequest represents the arguments for capture_get.
type GetRequest struct {
	ID            string `json:"id"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
}

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	Type   string `json:"type,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ReclassifyRequest represents the arguments for capture_reclassify.
type ReclassifyRequest struct {
	ID           string              `json:"id"`
	NewType      string              `json:"new_type"`
	NewSubType   *string             `json:"new_sub_type,omitempty"`
	TodoInfo     *model.TodoInfo     `json:"todo_info,omitempty"`
	ScheduleInfo *model.ScheduleInfo `json:"schedule_info,omitempty"`
}

// IDRequest represents the arguments for tools addressing one capture.
type IDRequest struct {
	ID string `json:"id"`
}

// SaveReviewRequest represents the arguments for capture_save_review.
type SaveReviewRequest struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	SubType      *string             `json:"sub_type,omitempty"`
	TodoInfo     *model.TodoInfo     `json:"todo_info,omitempty"`
	ScheduleInfo *model.ScheduleInfo `json:"schedule_info,omitempty"`
}

// SchedulesRequest represents the arguments for capture_schedules.
type SchedulesRequest struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Handler implementations

// HandleCreate handles the capture_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	source := input.Source
	if source == "" {
		source = "mcp"
	}
	capture, err := h.engine.Capture(ctx, engine.CaptureInput{
		Text:            input.Text,
		Source:          source,
		ImageURI:        input.ImageURI,
		ParentCaptureID: input.ParentCaptureID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(capture)
}

// HandleGet handles the capture_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	detail, err := h.engine.Get(ctx, input.ID, input.IncludeHidden)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(detail)
}

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var typ *model.CaptureType
	if input.Type != "" {
		t := model.CaptureType(strings.ToUpper(input.Type))
		if !t.Valid() {
			return errorResult(errors.NewInvalidRequest("unknown capture type: " + input.Type)), nil
		}
		typ = &t
	}

	captures, err := h.engine.List(ctx, typ, input.Limit, input.Offset)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"captures": captures, "count": len(captures)})
}

// HandleReclassify handles the capture_reclassify tool call.
func (h *Handlers) HandleReclassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReclassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	capture, err := h.engine.Reclassify(ctx, input.ID, engine.ReclassifyInput{
		NewType:      model.CaptureType(strings.ToUpper(input.NewType)),
		NewSubType:   subTypePtr(input.NewSubType),
		TodoInfo:     input.TodoInfo,
		ScheduleInfo: input.ScheduleInfo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(capture)
}

// HandleConfirm handles the capture_confirm tool call.
func (h *Handlers) HandleConfirm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.engine.Confirm(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"id": input.ID, "confirmed": true})
}

// HandleConfirmAll handles the capture_confirm_all tool call.
func (h *Handlers) HandleConfirmAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := h.engine.ConfirmAll(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"confirmed": n})
}

// HandleReviewQueue handles the capture_review_queue tool call.
func (h *Handlers) HandleReviewQueue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	captures, err := h.engine.Unconfirmed(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"captures": captures, "count": len(captures)})
}

// HandleSaveReview handles the capture_save_review tool call.
func (h *Handlers) HandleSaveReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveReviewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	capture, err := h.engine.SaveReview(ctx, input.ID, engine.ReviewSelection{
		Type:         model.CaptureType(strings.ToUpper(input.Type)),
		SubType:      subTypePtr(input.SubType),
		TodoInfo:     input.TodoInfo,
		ScheduleInfo: input.ScheduleInfo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(capture)
}

// HandleCancelAutoAccept handles the capture_cancel_auto_accept tool call.
func (h *Handlers) HandleCancelAutoAccept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	cancelled := h.engine.CancelAutoAccept(input.ID)
	return successResult(map[string]any{"id": input.ID, "cancelled": cancelled})
}

// HandleDelete handles the capture_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.engine.SoftDelete(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"id":            input.ID,
		"deleted":       true,
		"grace_seconds": h.engine.GraceDuration().Seconds(),
	})
}

// HandleUndoDelete handles the capture_undo_delete tool call.
func (h *Handlers) HandleUndoDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.engine.UndoSoftDelete(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"id": input.ID, "restored": true})
}

// HandleTrash handles the capture_trash tool call.
func (h *Handlers) HandleTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.engine.Trash(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"id": input.ID, "trashed": true})
}

// HandleRestore handles the capture_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.engine.Restore(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"id": input.ID, "restored": true})
}

// HandlePurgeTrash handles the capture_purge_trash tool call.
func (h *Handlers) HandlePurgeTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	purged, err := h.engine.PurgeTrash(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"purged": purged})
}

// HandleLogs handles the capture_logs tool call.
func (h *Handlers) HandleLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	logs, err := h.engine.Logs(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"logs": logs, "count": len(logs)})
}

// HandleTodos handles the capture_todos tool call.
func (h *Handlers) HandleTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos, err := h.engine.ActiveTodos(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"todos": todos, "count": len(todos)})
}

// HandleSchedules handles the capture_schedules tool call.
func (h *Handlers) HandleSchedules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SchedulesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.To < input.From {
		return errorResult(errors.NewInvalidRequest("to precedes from")), nil
	}

	schedules, err := h.engine.SchedulesInRange(ctx, input.From, input.To)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"schedules": schedules, "count": len(schedules)})
}

// HandleQueueStatus handles the queue_status tool call.
func (h *Handlers) HandleQueueStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]any{}
	for _, s := range []model.QueueStatus{model.StatusPending, model.StatusProcessing, model.StatusFailed} {
		items, err := db.ListOutboxByStatus(ctx, h.db, s)
		if err != nil {
			return errorResult(err), nil
		}
		key := strings.ToLower(string(s))
		status[key] = items
		status[key+"_count"] = len(items)
	}

	return successResult(status)
}

// HandleQueueDispatch handles the queue_dispatch tool call.
func (h *Handlers) HandleQueueDispatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processed, err := h.dispatcher.DispatchOnce(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"processed": processed})
}

// HandleSyncRun handles the sync_run tool call.
func (h *Handlers) HandleSyncRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.sync == nil {
		return errorResult(errors.NewInvalidRequest("no sync endpoint configured")), nil
	}

	pushed, pulled, err := h.sync.Sync(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"pushed": pushed, "pulled": pulled})
}

func subTypePtr(s *string) *model.NoteSubType {
	if s == nil {
		return nil
	}
	st := model.NoteSubType(strings.ToUpper(*s))
	return &st
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if jotErr, ok := err.(*errors.JotError); ok {
		errorObj := map[string]any{
			"code":    jotErr.Code,
			"message": jotErr.Message,
			"status":  jotErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if jotErr.Code != errors.ErrInternal && jotErr.Details != nil {
			errorObj["details"] = jotErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
