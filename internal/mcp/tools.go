package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Argument names mirror the JSON field names of the
// corresponding request structs in handlers.go.

var createToolDef = mcp.NewTool("capture_create",
	mcp.WithDescription("Store a new capture. It enters as unclassified TEMP and a classification action is queued."),
	mcp.WithString("text", mcp.Required(), mcp.Description("The raw capture text")),
	mcp.WithString("source", mcp.Description("Where the capture came from (default: mcp)")),
	mcp.WithString("image_uri", mcp.Description("Optional attached image URI")),
	mcp.WithString("parent_capture_id", mcp.Description("Optional parent capture for threaded captures")),
)

var getToolDef = mcp.NewTool("capture_get",
	mcp.WithDescription("Fetch a capture with its derived entity, tags, extracted entities, and reclassification history."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
	mcp.WithBoolean("include_hidden", mcp.Description("Also match soft-deleted and trashed captures")),
)

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List active captures, newest first, optionally filtered by type."),
	mcp.WithString("type", mcp.Description("Filter by type: SCHEDULE, TODO, NOTES, or TEMP")),
	mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 50)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip")),
)

var reclassifyToolDef = mcp.NewTool("capture_reclassify",
	mcp.WithDescription("Change a capture's category. The old derived entity is removed, a new one is built, and the change is logged."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
	mcp.WithString("new_type", mcp.Required(), mcp.Description("Target type: SCHEDULE, TODO, or NOTES")),
	mcp.WithString("new_sub_type", mcp.Description("Notes sub type: BOOKMARK or USER_FOLDER")),
	mcp.WithObject("todo_info", mcp.Description("Optional todo fields (deadline, priority)")),
	mcp.WithObject("schedule_info", mcp.Description("Optional schedule fields (start_time, end_time, location, is_all_day)")),
)

var confirmToolDef = mcp.NewTool("capture_confirm",
	mcp.WithDescription("Mark a capture's classification as user-acknowledged. Cancels any pending auto-accept countdown."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var confirmAllToolDef = mcp.NewTool("capture_confirm_all",
	mcp.WithDescription("Confirm every classified-but-unconfirmed capture at once."),
)

var reviewQueueToolDef = mcp.NewTool("capture_review_queue",
	mcp.WithDescription("List captures classified within the last 24 hours that await confirmation."),
)

var saveReviewToolDef = mcp.NewTool("capture_save_review",
	mcp.WithDescription("Resolve a low-confidence classification by picking its category. This is the first materialization for the capture."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
	mcp.WithString("type", mcp.Required(), mcp.Description("Chosen type: SCHEDULE, TODO, or NOTES")),
	mcp.WithString("sub_type", mcp.Description("Notes sub type: BOOKMARK or USER_FOLDER")),
	mcp.WithObject("todo_info", mcp.Description("Optional todo fields")),
	mcp.WithObject("schedule_info", mcp.Description("Optional schedule fields")),
)

var cancelAutoAcceptToolDef = mcp.NewTool("capture_cancel_auto_accept",
	mcp.WithDescription("Stop the auto-accept countdown for a capture so it waits for an explicit confirm."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var deleteToolDef = mcp.NewTool("capture_delete",
	mcp.WithDescription("Soft-delete a capture. It disappears immediately and is hard-deleted after the grace period unless undone."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var undoDeleteToolDef = mcp.NewTool("capture_undo_delete",
	mcp.WithDescription("Undo a soft delete within the grace period, restoring the capture and its derived entity."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var trashToolDef = mcp.NewTool("capture_trash",
	mcp.WithDescription("Move a capture to the trash. Trashed captures keep their data until restored or purged."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var restoreToolDef = mcp.NewTool("capture_restore",
	mcp.WithDescription("Take a capture back out of the trash."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var purgeTrashToolDef = mcp.NewTool("capture_purge_trash",
	mcp.WithDescription("Permanently remove captures that have exceeded the trash retention window."),
)

var logsToolDef = mcp.NewTool("capture_logs",
	mcp.WithDescription("Return a capture's reclassification audit trail, newest first."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID")),
)

var todosToolDef = mcp.NewTool("capture_todos",
	mcp.WithDescription("List incomplete todos, soonest deadline first."),
)

var schedulesToolDef = mcp.NewTool("capture_schedules",
	mcp.WithDescription("List schedules overlapping a time range."),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("Range start, unix milliseconds")),
	mcp.WithNumber("to", mcp.Required(), mcp.Description("Range end, unix milliseconds")),
)

var queueStatusToolDef = mcp.NewTool("queue_status",
	mcp.WithDescription("Report the offline action queue: pending, processing, and terminally failed items."),
)

var queueDispatchToolDef = mcp.NewTool("queue_dispatch",
	mcp.WithDescription("Run one dispatch pass over the offline action queue."),
)

var syncRunToolDef = mcp.NewTool("sync_run",
	mcp.WithDescription("Push local changes to the sync peer, then pull and apply remote changes."),
)
