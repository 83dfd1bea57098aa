// Package model defines the persistent entities of the capture engine:
// the Capture root record, its derived entities (Todo, Schedule, Note),
// and the supporting tag / extracted-entity / audit-log records.
package model

// CaptureType is the semantic category assigned to a capture.
// TEMP means classification has not completed and no derived entity exists.
type CaptureType string

const (
	TypeSchedule CaptureType = "SCHEDULE"
	TypeTodo     CaptureType = "TODO"
	TypeNotes    CaptureType = "NOTES"
	TypeTemp     CaptureType = "TEMP"
)

// Valid reports whether t is one of the closed set of capture types.
func (t CaptureType) Valid() bool {
	switch t {
	case TypeSchedule, TypeTodo, TypeNotes, TypeTemp:
		return true
	}
	return false
}

// NoteSubType refines NOTES captures. Meaningful only when the capture
// type is NOTES.
type NoteSubType string

const (
	SubTypeInbox      NoteSubType = "INBOX"
	SubTypeIdea       NoteSubType = "IDEA"
	SubTypeBookmark   NoteSubType = "BOOKMARK"
	SubTypeUserFolder NoteSubType = "USER_FOLDER"
)

// Valid reports whether s is a known note subtype.
func (s NoteSubType) Valid() bool {
	switch s {
	case SubTypeInbox, SubTypeIdea, SubTypeBookmark, SubTypeUserFolder:
		return true
	}
	return false
}

// ConfidenceLevel buckets a raw classifier confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Confidence score thresholds. Boundaries are inclusive on the higher tier.
const (
	HighConfidenceThreshold   = 0.95
	MediumConfidenceThreshold = 0.80
)

// LevelForScore maps a raw [0,1] confidence score to a ConfidenceLevel.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceThreshold:
		return ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// System note folders. Notes always resolve to one of these unless the
// user has filed them into a folder of their own.
const (
	FolderInbox     = "inbox"
	FolderBookmarks = "bookmarks"
)

// TodoPriority is the priority of a derived todo.
type TodoPriority string

const (
	PriorityNone   TodoPriority = "NONE"
	PriorityLow    TodoPriority = "LOW"
	PriorityMedium TodoPriority = "MEDIUM"
	PriorityHigh   TodoPriority = "HIGH"
)

// Capture is the root entity for one user-submitted item.
type Capture struct {
	ID                        string           `json:"id"`
	OriginalText              string           `json:"original_text"`
	AITitle                   *string          `json:"ai_title,omitempty"`
	ClassifiedType            CaptureType      `json:"classified_type"`
	NoteSubType               *NoteSubType     `json:"note_sub_type,omitempty"`
	Confidence                *ConfidenceLevel `json:"confidence,omitempty"`
	Source                    string           `json:"source"`
	IsConfirmed               bool             `json:"is_confirmed"`
	ConfirmedAt               *int64           `json:"confirmed_at,omitempty"`
	IsDeleted                 bool             `json:"is_deleted"`
	DeletedAt                 *int64           `json:"deleted_at,omitempty"`
	IsTrashed                 bool             `json:"is_trashed"`
	TrashedAt                 *int64           `json:"trashed_at,omitempty"`
	CreatedAt                 int64            `json:"created_at"`
	UpdatedAt                 int64            `json:"updated_at"`
	ClassificationCompletedAt *int64           `json:"classification_completed_at,omitempty"`
	ImageURI                  *string          `json:"image_uri,omitempty"`
	ParentCaptureID           *string          `json:"parent_capture_id,omitempty"`
}

// Todo is the derived entity for TODO captures.
type Todo struct {
	ID              string       `json:"id"`
	SourceCaptureID string       `json:"source_capture_id"`
	Title           string       `json:"title"`
	Deadline        *int64       `json:"deadline,omitempty"`
	Priority        TodoPriority `json:"priority"`
	Labels          []string     `json:"labels,omitempty"`
	IsCompleted     bool         `json:"is_completed"`
	CompletedAt     *int64       `json:"completed_at,omitempty"`
	CreatedAt       int64        `json:"created_at"`
	UpdatedAt       int64        `json:"updated_at"`
}

// Schedule is the derived entity for SCHEDULE captures.
type Schedule struct {
	ID              string  `json:"id"`
	SourceCaptureID string  `json:"source_capture_id"`
	Title           string  `json:"title"`
	StartTime       int64   `json:"start_time"`
	EndTime         int64   `json:"end_time"`
	Location        *string `json:"location,omitempty"`
	IsAllDay        bool    `json:"is_all_day"`
	CalendarEventID *string `json:"calendar_event_id,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

// Note is the derived entity for NOTES captures.
type Note struct {
	ID              string `json:"id"`
	SourceCaptureID string `json:"source_capture_id"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	Folder          string `json:"folder"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// DerivedEntity is the closed set of entities a capture can materialize.
// The marker method keeps the set sealed so type switches over it stay
// exhaustive as categories are added.
type DerivedEntity interface {
	isDerived()
}

func (*Todo) isDerived()     {}
func (*Schedule) isDerived() {}
func (*Note) isDerived()     {}

// Tag is a name-unique dictionary entity linked many-to-many to captures.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// ExtractedEntity is one NER-style fact pulled from a capture's content.
// The full set for a capture is replaced on every (re)classification.
type ExtractedEntity struct {
	ID         string `json:"id"`
	CaptureID  string `json:"capture_id"`
	EntityType string `json:"entity_type"`
	RawValue   string `json:"raw_value"`
	Normalized string `json:"normalized_value"`
}

// ClassificationLog is one append-only audit row recording a
// user-initiated reclassification. Rows are never mutated or deleted
// except by the owning capture's hard delete.
type ClassificationLog struct {
	ID                        string       `json:"id"`
	CaptureID                 string       `json:"capture_id"`
	OriginalType              CaptureType  `json:"original_type"`
	OriginalSubType           *NoteSubType `json:"original_sub_type,omitempty"`
	NewType                   CaptureType  `json:"new_type"`
	NewSubType                *NoteSubType `json:"new_sub_type,omitempty"`
	TimeSinceClassificationMs *int64       `json:"time_since_classification_ms,omitempty"`
	ModifiedAt                int64        `json:"modified_at"`
}
