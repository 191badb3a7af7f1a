package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Activity kinds
const (
	ActivityCheckIn          = "check_in"
	ActivityOrderPaid        = "order_paid"
	ActivityProjectCompleted = "project_completed"
	ActivityFeedbackGiven    = "feedback_given"
)

// levelThresholds are the XP floors of levels 1..10. Each later level costs levelStep more.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 12000}

const levelStep = 5000

// LevelForXP returns the 1-based level reached with xp.
func LevelForXP(xp int) int {
	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		return len(levelThresholds) + (xp-last)/levelStep
	}
	level := 1
	for i, t := range levelThresholds {
		if xp >= t {
			level = i + 1
		}
	}
	return level
}

// ThresholdForLevel returns the XP needed to reach level.
func ThresholdForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	return levelThresholds[len(levelThresholds)-1] + (level-len(levelThresholds))*levelStep
}

// NextStreak advances a daily streak. Activity on the same UTC day keeps it,
// the following day extends it, anything later restarts at 1.
func NextStreak(current int, last *time.Time, now time.Time) int {
	if last == nil || current <= 0 {
		return 1
	}
	days := int(truncateDay(now).Sub(truncateDay(*last)).Hours() / 24)
	switch {
	case days <= 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// ActivityResult outcome of one recorded activity
type ActivityResult struct {
	Progress        *entity.UserProgress `json:"progress"`
	LeveledUp       bool                 `json:"leveledUp"`
	NewAchievements []entity.Achievement `json:"newAchievements"`
}

// GamificationService xp, levels, streaks and achievements
type GamificationService struct {
	repo          *repository.GamificationRepository
	orderRepo     *repository.OrderRepository
	milestoneRepo *repository.MilestoneRepository
	projectRepo   *repository.ProjectRepository
	publisher     events.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewGamificationService(
	repo *repository.GamificationRepository,
	orderRepo *repository.OrderRepository,
	milestoneRepo *repository.MilestoneRepository,
	projectRepo *repository.ProjectRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *GamificationService {
	return &GamificationService{
		repo:          repo,
		orderRepo:     orderRepo,
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// RecordActivity adds xp, advances the streak and evaluates achievements.
func (s *GamificationService) RecordActivity(ctx context.Context, userID, kind string, xp int) (*ActivityResult, error) {
	if userID == "" {
		return nil, validationf("user is required")
	}
	p, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	now := s.now().UTC()
	before := p.Level
	p.CurrentStreak = NextStreak(p.CurrentStreak, p.LastActivityDate, now)
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	day := truncateDay(now)
	p.LastActivityDate = &day
	if kind == ActivityCheckIn {
		p.LastCheckInDate = &day
	}
	p.XP += xp
	p.Level = LevelForXP(p.XP)

	awarded, err := s.evaluateAchievements(ctx, p)
	if err != nil {
		s.logger.Warn("achievement evaluation failed", zap.String("user_id", userID), zap.Error(err))
	}
	for _, a := range awarded {
		p.XP += a.XPReward
	}
	p.Level = LevelForXP(p.XP)

	if err := s.repo.SaveProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	s.logger.Debug("activity recorded",
		zap.String("user_id", userID),
		zap.String("kind", kind),
		zap.Int("xp", p.XP),
		zap.Int("level", p.Level))

	return &ActivityResult{
		Progress:        p,
		LeveledUp:       p.Level > before,
		NewAchievements: awarded,
	}, nil
}

// evaluateAchievements awards every active achievement whose metric reached its threshold.
func (s *GamificationService) evaluateAchievements(ctx context.Context, p *entity.UserProgress) ([]entity.Achievement, error) {
	all, err := s.repo.ListActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	held, err := s.repo.ListUserAchievements(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(held))
	for _, ua := range held {
		owned[ua.AchievementID] = true
	}

	values := map[string]int{
		entity.MetricXP:         p.XP,
		entity.MetricStreakDays: p.CurrentStreak,
	}
	metricValue := func(metric string) (int, error) {
		if v, ok := values[metric]; ok {
			return v, nil
		}
		var n int64
		var err error
		switch metric {
		case entity.MetricOrdersPaid:
			n, err = s.orderRepo.CountPaid(ctx, p.UserID)
		case entity.MetricProjectsCompleted:
			n, err = s.repo.CountCompletedProjects(ctx, p.UserID)
		case entity.MetricFeedbackGiven:
			n, err = s.milestoneRepo.CountFeedback(ctx, p.UserID)
		}
		if err != nil {
			return 0, err
		}
		values[metric] = int(n)
		return int(n), nil
	}

	var awarded []entity.Achievement
	for _, a := range all {
		if owned[a.ID] {
			continue
		}
		v, err := metricValue(a.Metric)
		if err != nil {
			return awarded, err
		}
		if v < a.Threshold {
			continue
		}
		err = s.repo.Award(ctx, &entity.UserAchievement{
			ID:            newID(),
			UserID:        p.UserID,
			AchievementID: a.ID,
			AwardedAt:     s.now().UTC(),
		})
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return awarded, err
		}
		awarded = append(awarded, a)
		metrics.IncrementAchievementsAwarded(a.Code)
		publish(ctx, s.publisher, s.logger, events.AchievementAwarded, map[string]string{
			"userId": p.UserID,
			"code":   a.Code,
		})
	}
	return awarded, nil
}

// CheckIn grants the daily XP once per UTC day.
func (s *GamificationService) CheckIn(ctx context.Context, userID string) (*ActivityResult, bool, error) {
	p, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if p.LastCheckInDate != nil && truncateDay(*p.LastCheckInDate).Equal(truncateDay(s.now())) {
		return &ActivityResult{Progress: p}, false, nil
	}
	res, err := s.RecordActivity(ctx, userID, ActivityCheckIn, XPDailyCheckIn)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// Dashboard account overview
type Dashboard struct {
	Progress         *entity.UserProgress     `json:"progress"`
	NextLevelXP      int                      `json:"nextLevelXp"`
	CurrentLevelXP   int                      `json:"currentLevelXp"`
	Achievements     []entity.UserAchievement `json:"achievements"`
	ProjectsByStatus map[string]int64         `json:"projectsByStatus"`
	RecentOrders     []entity.Order           `json:"recentOrders"`
}

// Dashboard loads the sections concurrently.
func (s *GamificationService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	d := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.repo.GetProgress(gctx, userID)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		d.Progress = p
		d.CurrentLevelXP = ThresholdForLevel(p.Level)
		d.NextLevelXP = ThresholdForLevel(p.Level + 1)
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.ListUserAchievements(gctx, userID)
		if err != nil {
			return fmt.Errorf("achievements: %w", err)
		}
		d.Achievements = items
		return nil
	})
	g.Go(func() error {
		counts, err := s.projectRepo.CountByStatus(gctx, userID)
		if err != nil {
			return fmt.Errorf("projects: %w", err)
		}
		d.ProjectsByStatus = counts
		return nil
	})
	g.Go(func() error {
		orders, err := s.orderRepo.ListRecentByCustomer(gctx, userID, 5)
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		d.RecentOrders = orders
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
