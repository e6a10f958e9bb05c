package dto

// PolicyUpdateRequest overrides a user's scheduling policy. A nil field
// resets that value to the system default.
type PolicyUpdateRequest struct {
	BreakTime *int `json:"break_time" validate:"omitempty,gte=0,lte=240"`
	ChunkTime *int `json:"chunk_time" validate:"omitempty,gte=0,lte=600"`
}

// PolicyResponse describes the effective policy for a user.
type PolicyResponse struct {
	BreakTime        int  `json:"break_time"`
	MinChunkDuration int  `json:"min_chunk_duration"`
	DayEnd           int  `json:"day_end_minutes"`
	BreakOverridden  bool `json:"break_overridden"`
	ChunkOverridden  bool `json:"chunk_overridden"`
}
