package model

// TodoInfo carries todo-specific fields of a classification result.
type TodoInfo struct {
	Deadline *int64       `json:"deadline,omitempty"`
	Priority TodoPriority `json:"priority,omitempty"`
	Labels   []string     `json:"labels,omitempty"`
}

// ScheduleInfo carries schedule-specific fields of a classification
// result. StartTime and EndTime are required; Location is optional.
type ScheduleInfo struct {
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
	Location  *string `json:"location,omitempty"`
	IsAllDay  bool    `json:"is_all_day"`
}

// EntityFact is one extracted entity inside a classification result.
type EntityFact struct {
	EntityType string `json:"entity_type"`
	RawValue   string `json:"raw_value"`
	Normalized string `json:"normalized_value"`
}

// Classification is the transient result of classifying a capture's
// content. It is never persisted as its own row; apply() folds it into
// the capture record, tag links, extracted entities, and exactly one
// derived entity.
type Classification struct {
	Type     CaptureType  `json:"type"`
	SubType  *NoteSubType `json:"sub_type,omitempty"`
	Score    float64      `json:"confidence"`
	AITitle  *string      `json:"ai_title,omitempty"`
	Tags     []string     `json:"tags,omitempty"`
	Entities []EntityFact `json:"entities,omitempty"`

	// At most one of these is set, matching Type.
	TodoInfo     *TodoInfo     `json:"todo_info,omitempty"`
	ScheduleInfo *ScheduleInfo `json:"schedule_info,omitempty"`
}

// Level returns the confidence bucket for the raw score.
func (c *Classification) Level() ConfidenceLevel {
	return LevelForScore(c.Score)
}
