package model

// Offline queue payloads, one per ActionKind. Stored as JSON in the
// outbox row and decoded by the matching dispatch handler.

// ClassifyPayload asks the remote classifier for a capture's first
// classification.
type ClassifyPayload struct {
	CaptureID string `json:"capture_id"`
	Content   string `json:"content"`
}

// ReclassifyPayload reports a user-initiated category change to the
// remote peer.
type ReclassifyPayload struct {
	CaptureID  string       `json:"capture_id"`
	NewType    CaptureType  `json:"new_type"`
	NewSubType *NoteSubType `json:"new_sub_type,omitempty"`
}

// CalendarCreatePayload mirrors a derived schedule into the external
// calendar. ScheduleID doubles as the idempotency key so a replayed
// create does not double-book.
type CalendarCreatePayload struct {
	CaptureID  string  `json:"capture_id"`
	ScheduleID string  `json:"schedule_id"`
	Title      string  `json:"title"`
	StartTime  int64   `json:"start_time"`
	EndTime    int64   `json:"end_time"`
	Location   *string `json:"location,omitempty"`
	IsAllDay   bool    `json:"is_all_day"`
}

// CalendarDeletePayload removes a previously mirrored calendar event.
type CalendarDeletePayload struct {
	CaptureID       string `json:"capture_id"`
	CalendarEventID string `json:"calendar_event_id"`
}
