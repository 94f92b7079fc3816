package dto

type CreateRecordRequest struct {
	ProcessID      string  `json:"process_id" validate:"required,uuid4"`
	ParentRecordID *string `json:"parent_record_id" validate:"omitempty,uuid4"`
	Notes          *string `json:"notes"`
	StartedAt      *string `json:"started_at"` // RFC 3339; defaults to now
}

type UpdateRecordRequest struct {
	Notes      *string `json:"notes"`
	StartedAt  *string `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
}

type SetParentRequest struct {
	// Null clears the parent, turning the record into a root.
	ParentRecordID *string `json:"parent_record_id" validate:"omitempty,uuid4"`
}

type RecordResponse struct {
	ID             string  `json:"id"`
	ProcessID      string  `json:"process_id"`
	ParentRecordID *string `json:"parent_record_id"`
	Notes          *string `json:"notes"`
	StartedAt      string  `json:"started_at"`
	FinishedAt     *string `json:"finished_at"`
	IsRoot         bool    `json:"is_root"`
}

type RecordListResponse struct {
	Data  []RecordResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
