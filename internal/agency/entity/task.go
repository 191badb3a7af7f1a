package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Task unit of work inside a service project
type Task struct {
	ID             string                              `json:"id" gorm:"primaryKey;size:36"`
	ProjectID      string                              `json:"project_id" gorm:"size:36;not null;index"`
	MilestoneID    *string                             `json:"milestone_id" gorm:"size:36;index"`
	Title          string                              `json:"title" gorm:"size:255;not null"`
	Description    string                              `json:"description" gorm:"type:text"`
	Status         string                              `json:"status" gorm:"size:16;not null;default:todo"`
	Priority       string                              `json:"priority" gorm:"size:16;not null;default:medium"`
	Progress       int                                 `json:"progress" gorm:"default:0"`
	DueDate        *time.Time                          `json:"due_date"`
	CompletedAt    *time.Time                          `json:"completed_at"`
	AssignedToID   *string                             `json:"assigned_to_id" gorm:"size:36;index"`
	EstimatedHours float64                             `json:"estimated_hours"`
	ActualHours    float64                             `json:"actual_hours"`
	Tags           datatypes.JSONSlice[string]         `json:"tags"`
	Comments       datatypes.JSONSlice[TaskComment]    `json:"comments"`
	Attachments    datatypes.JSONSlice[TaskAttachment] `json:"attachments"`
	Activities     datatypes.JSONSlice[TaskActivity]   `json:"activities"`
	CreatedBy      string                              `json:"created_by" gorm:"size:36"`
	CreatedAt      time.Time                           `json:"created_at"`
	UpdatedAt      time.Time                           `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Task statuses
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TaskComment struct {
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type TaskAttachment struct {
	MediaID  string `json:"mediaId"`
	FileName string `json:"fileName"`
}

type TaskActivity struct {
	Kind      string    `json:"kind"` // created/status/assigned/comment
	ActorID   string    `json:"actorId"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
