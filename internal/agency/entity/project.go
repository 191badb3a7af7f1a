package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ServiceProject client delivery project
type ServiceProject struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Name              string     `json:"name" gorm:"size:255;not null"`
	Description       string     `json:"description" gorm:"type:text"`
	CustomerID        string     `json:"customer_id" gorm:"size:36;not null;index"`
	AssignedToID      *string    `json:"assigned_to_id" gorm:"size:36;index"`
	Status            string     `json:"status" gorm:"size:16;not null;default:new"`
	AppliedTemplateID *string    `json:"applied_template_id" gorm:"size:36"`
	OrderID           *string    `json:"order_id" gorm:"size:36"`
	StartDate         *time.Time `json:"start_date"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Customer   *User `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	AssignedTo *User `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
}

func (ServiceProject) TableName() string {
	return "service_projects"
}

// Project statuses
const (
	ProjectStatusNew        = "new"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusOnReview   = "on_review"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusNew, ProjectStatusInProgress, ProjectStatusOnReview, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// MilestoneDependency offset from another milestone of the same project
type MilestoneDependency struct {
	MilestoneOrder int `json:"milestoneOrder"`
	OffsetDays     int `json:"offsetDays"`
}

// ProjectMilestone dated checkpoint of a project
type ProjectMilestone struct {
	ID                     string                                   `json:"id" gorm:"primaryKey;size:36"`
	ProjectID              string                                   `json:"project_id" gorm:"size:36;not null;index"`
	Title                  string                                   `json:"title" gorm:"size:255;not null"`
	Description            string                                   `json:"description" gorm:"type:text"`
	Status                 string                                   `json:"status" gorm:"size:16;not null;default:not_started"`
	DueDate                *time.Time                               `json:"due_date"`
	CompletedAt            *time.Time                               `json:"completed_at"`
	Order                  int                                      `json:"order" gorm:"column:sort_order;not null;default:0"`
	ClientApprovalRequired bool                                     `json:"client_approval_required" gorm:"default:false"`
	ClientApproved         bool                                     `json:"client_approved" gorm:"default:false"`
	ClientApprovedAt       *time.Time                               `json:"client_approved_at"`
	ClientFeedback         string                                   `json:"client_feedback" gorm:"type:text"`
	SatisfactionRating     *int                                     `json:"satisfaction_rating"`
	DependsOn              datatypes.JSONSlice[MilestoneDependency] `json:"depends_on"`
	CreatedAt              time.Time                                `json:"created_at"`
	UpdatedAt              time.Time                                `json:"updated_at"`
}

func (ProjectMilestone) TableName() string {
	return "project_milestones"
}

// Milestone statuses
const (
	MilestoneStatusNotStarted = "not_started"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusCompleted  = "completed"
	MilestoneStatusDelayed    = "delayed"
	MilestoneStatusBlocked    = "blocked"
)

func ValidMilestoneStatus(s string) bool {
	switch s {
	case MilestoneStatusNotStarted, MilestoneStatusInProgress, MilestoneStatusCompleted, MilestoneStatusDelayed, MilestoneStatusBlocked:
		return true
	}
	return false
}

// ProjectMessage conversation entry
type ProjectMessage struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID  string    `json:"project_id" gorm:"size:36;not null;index"`
	AuthorID   string    `json:"author_id" gorm:"size:36;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	IsInternal bool      `json:"is_internal" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`

	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (ProjectMessage) TableName() string {
	return "project_messages"
}

// ProjectFeedback client rating of a milestone
type ProjectFeedback struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID   string    `json:"project_id" gorm:"size:36;not null;index"`
	MilestoneID string    `json:"milestone_id" gorm:"size:36;not null;uniqueIndex"`
	CustomerID  string    `json:"customer_id" gorm:"size:36;not null"`
	Rating      int       `json:"rating" gorm:"not null"`
	Comment     string    `json:"comment" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ProjectFeedback) TableName() string {
	return "project_feedback"
}
