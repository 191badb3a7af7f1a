package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// translate maps driver errors onto repository errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// Repositories groups every repository over one connection.
type Repositories struct {
	db *gorm.DB

	User         *UserRepository
	Media        *MediaRepository
	Project      *ProjectRepository
	Milestone    *MilestoneRepository
	Message      *MessageRepository
	Template     *TemplateRepository
	Task         *TaskRepository
	Catalog      *CatalogRepository
	Discount     *DiscountRepository
	Order        *OrderRepository
	Course       *CourseRepository
	Gamification *GamificationRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		Media:        NewMediaRepository(db),
		Project:      NewProjectRepository(db),
		Milestone:    NewMilestoneRepository(db),
		Message:      NewMessageRepository(db),
		Template:     NewTemplateRepository(db),
		Task:         NewTaskRepository(db),
		Catalog:      NewCatalogRepository(db),
		Discount:     NewDiscountRepository(db),
		Order:        NewOrderRepository(db),
		Course:       NewCourseRepository(db),
		Gamification: NewGamificationRepository(db),
	}
}

// DB returns the underlying connection.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
