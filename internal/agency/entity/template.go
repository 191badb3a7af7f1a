package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ProjectTemplate reusable blueprint of milestones and tasks
type ProjectTemplate struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text"`
	ServiceType string    `json:"service_type" gorm:"size:50"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Milestones []TemplateMilestone `json:"milestones,omitempty" gorm:"foreignKey:TemplateID"`
	Tasks      []TemplateTask      `json:"tasks,omitempty" gorm:"foreignKey:TemplateID"`
}

func (ProjectTemplate) TableName() string {
	return "project_templates"
}

// Duration units
const (
	DurationDays   = "days"
	DurationWeeks  = "weeks"
	DurationMonths = "months"
)

// TemplateMilestone milestone blueprint
type TemplateMilestone struct {
	ID                     string                                   `json:"id" gorm:"primaryKey;size:36"`
	TemplateID             string                                   `json:"template_id" gorm:"size:36;not null;index"`
	Title                  string                                   `json:"title" gorm:"size:255;not null"`
	Description            string                                   `json:"description" gorm:"type:text"`
	Order                  int                                      `json:"order" gorm:"column:sort_order;not null;default:0"`
	DurationValue          int                                      `json:"duration_value" gorm:"default:0"`
	DurationUnit           string                                   `json:"duration_unit" gorm:"size:10;default:days"` // days/weeks/months
	DependsOn              datatypes.JSONSlice[MilestoneDependency] `json:"depends_on"`
	RequiresClientApproval bool                                     `json:"requires_client_approval" gorm:"default:false"`
}

func (TemplateMilestone) TableName() string {
	return "template_milestones"
}

// DurationInDays converts the estimated duration to days.
func (m TemplateMilestone) DurationInDays() int {
	switch m.DurationUnit {
	case DurationWeeks:
		return m.DurationValue * 7
	case DurationMonths:
		return m.DurationValue * 30
	default:
		return m.DurationValue
	}
}

// TemplateTask task blueprint attached to a milestone by order
type TemplateTask struct {
	ID                    string  `json:"id" gorm:"primaryKey;size:36"`
	TemplateID            string  `json:"template_id" gorm:"size:36;not null;index"`
	Title                 string  `json:"title" gorm:"size:255;not null"`
	Description           string  `json:"description" gorm:"type:text"`
	RelatedMilestoneOrder *int    `json:"related_milestone_order"`
	EstimatedHours        float64 `json:"estimated_hours"`
	AssigneeRole          string  `json:"assignee_role" gorm:"size:32"`
	SortOrder             int     `json:"sort_order" gorm:"default:0"`
}

func (TemplateTask) TableName() string {
	return "template_tasks"
}
