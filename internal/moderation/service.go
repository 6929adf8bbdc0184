// Package moderation turns stranger-chat reports into reputation
// penalties and escalating bans.
package moderation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/config"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// Store is the slice of storage the moderation service uses.
type Store interface {
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdateUserReputation(userID string, delta int) error
	SaveReport(report *models.Report) error
	GetReportByID(id uint) (*models.Report, error)
	UpdateReportStatus(id uint, status string) error
	CountReportsSince(userID string, since time.Time) (int64, error)
	SetBanFlag(userID string, duration time.Duration) error
	ClearBanFlag(userID string) error
}

// Alerter pushes a notification about a new report to the admins.
type Alerter interface {
	ReportFiled(report *models.Report)
}

type Service struct {
	store  Store
	alerts Alerter // may be nil
}

func New(store Store, alerts Alerter) *Service {
	return &Service{store: store, alerts: alerts}
}

// Weight returns the reputation penalty for a report category.
// Unrecognized categories weigh nothing.
func Weight(category string) int {
	return config.ReportWeights[category]
}

// HandleReport persists the report, applies the penalty, and checks
// whether the reported user crossed a ban threshold.
func (s *Service) HandleReport(report *models.Report) error {
	if err := s.store.SaveReport(report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if weight := Weight(report.Category); weight > 0 {
		if err := s.store.UpdateUserReputation(report.ReportedUserID, -weight); err != nil {
			return fmt.Errorf("apply penalty: %w", err)
		}
	}

	if s.alerts != nil {
		go s.alerts.ReportFiled(report)
	}

	return s.CheckForBan(report.ReportedUserID)
}

// ConfirmReport marks a report as reviewed-and-valid and rewards the
// reporter.
func (s *Service) ConfirmReport(reportID uint) error {
	report, err := s.store.GetReportByID(reportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if err := s.store.UpdateReportStatus(reportID, models.ReportStatusConfirmed); err != nil {
		return err
	}
	if report.ReporterID == "" {
		return nil // guest reporter, nothing to reward
	}
	return s.store.UpdateUserReputation(report.ReporterID, config.ConfirmedReportBonus)
}

// CheckForBan bans a user whose reputation dropped below the threshold
// or who collected too many reports inside the frequency window.
func (s *Service) CheckForBan(userID string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.ReputationScore < config.BanThresholdReputation {
		return s.applyBan(user)
	}

	reports, err := s.store.CountReportsSince(userID, time.Now().Add(-config.BanFrequencyWindow))
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	if reports > config.BanThresholdFrequency {
		return s.applyBan(user)
	}
	return nil
}

// Unban lifts a ban immediately.
func (s *Service) Unban(userID string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	user.IsBlocked = false
	user.BlockEndTime = 0
	if err := s.store.UpdateUser(user); err != nil {
		return err
	}
	return s.store.ClearBanFlag(userID)
}

// applyBan escalates the ban level based on how recently the user was
// banned last.
func (s *Service) applyBan(user *models.User) error {
	level := 1
	if user.LastBanDate > 0 {
		sinceLast := time.Since(time.Unix(user.LastBanDate, 0))
		if sinceLast < config.BanRepeatLevel2Window {
			level = 2
		} else if sinceLast < config.BanRepeatLevel3Window {
			level = 3
		}
	}
	duration := banDuration(level)

	user.IsBlocked = true
	user.BlockLevel = level
	user.BlockEndTime = time.Now().Add(duration).Unix()
	user.LastBanDate = time.Now().Unix()
	if err := s.store.UpdateUser(user); err != nil {
		return fmt.Errorf("persist ban: %w", err)
	}

	// The Redis flag is what the queue join path actually checks.
	if err := s.store.SetBanFlag(user.ID, duration); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to set ban flag")
	}

	log.Info().Str("user_id", user.ID).Int("level", level).Dur("duration", duration).Msg("user banned")
	return nil
}

func banDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.BanLevel1Duration
	case 2:
		return config.BanLevel2Duration
	default:
		return config.BanLevel3Duration
	}
}
