package dto

// Amounts in every request and response are integer micro-units
// (1 coin = 1,000,000 micro). Clients never send floats.

type CreateTaskRequest struct {
	EmployerID     string `json:"employer_id" binding:"required"`
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	RewardMicro    int64  `json:"reward_micro" binding:"required,gt=0"`
	SlotsAvailable int    `json:"slots_available" binding:"required,gt=0"`
	Deadline       string `json:"deadline" binding:"required"` // RFC 3339
}

type ListTasksRequest struct {
	EmployerID string `form:"employer_id"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

type ListTasksResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type TaskDTO struct {
	TaskID         string `json:"task_id"`
	EmployerID     string `json:"employer_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	RewardMicro    int64  `json:"reward_micro"`
	Reward         string `json:"reward"`
	SlotsAvailable int    `json:"slots_available"`
	SlotsRemaining int    `json:"slots_remaining"`
	Status         string `json:"status"`
	Deadline       string `json:"deadline"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}
