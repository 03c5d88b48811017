package dto

// ProfilingEvent is one frame on a profiling session websocket.
type ProfilingEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ProfilingCommand is what the traveler sends over the profiling websocket.
type ProfilingCommand struct {
	Type       string `json:"type"` // "answer" | "complete" | "abandon"
	QuestionId string `json:"question_id"`
	Answer     string `json:"answer"`
}

// ProfileSummaryJob is the payload of the profile summary topic.
type ProfileSummaryJob struct {
	OwnerKey string `json:"owner_key"`
}
