// Package storage is the persistence layer: Postgres through GORM for
// durable records, Redis for ban flags and the realtime observability
// bits (presence feed, waiting gauge).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

const (
	banKeyPrefix    = "ban:"
	waitingSetKey   = "stranger:waiting"
	presenceChannel = "presence:updates"
)

// ErrRedisUnavailable is returned by Redis-backed methods when the
// service was built without a Redis client (the admin CLI does this).
var ErrRedisUnavailable = errors.New("redis client is not configured")

// Storage is everything the rest of the application asks of
// persistence. Consumers depend on the narrow slices of this they
// actually use.
type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdateUserReputation(userID string, delta int) error
	CountUsers() (int64, error)

	FriendIDs(userID string) ([]string, error)
	AreFriends(a, b string) (bool, error)

	SaveDirectMessage(msg *models.DirectMessage) error
	ListMessagesSince(userID string, sinceID uint, limit int) ([]models.DirectMessage, error)

	SaveSessionRecord(rec *models.SessionRecord) error
	CloseSessionRecord(sessionID, reason string, messageCount int) error
	CountActiveSessionRecords() (int64, error)
	CountSessionRecords() (int64, error)

	SaveReport(report *models.Report) error
	GetReportByID(id uint) (*models.Report, error)
	UpdateReportStatus(id uint, status string) error
	CountReportsSince(userID string, since time.Time) (int64, error)

	IsUserBanned(userID string) (bool, error)
	SetBanFlag(userID string, duration time.Duration) error
	ClearBanFlag(userID string) error

	PublishPresence(userID string, status string) error
	AddWaiting(connID string) error
	RemoveWaiting(connID string) error
	ResetWaiting() error
	CountWaiting() (int64, error)
}

// Service implements Storage over GORM and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client // may be nil; Redis-backed methods then error
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}
}

// --- Users ---

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) UpdateUserReputation(userID string, delta int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("reputation_score", gorm.Expr("reputation_score + ?", delta)).Error
}

func (s *Service) CountUsers() (int64, error) {
	var n int64
	err := s.DB.Model(&models.User{}).Count(&n).Error
	return n, err
}

// --- Friendships ---

func (s *Service) FriendIDs(userID string) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	return ids, err
}

func (s *Service) AreFriends(a, b string) (bool, error) {
	var n int64
	err := s.DB.Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", a, b).
		Count(&n).Error
	return n > 0, err
}

// --- Direct messages ---

func (s *Service) SaveDirectMessage(msg *models.DirectMessage) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Error().Err(err).Str("recipient", msg.RecipientID).Msg("failed to save direct message")
		return err
	}
	return nil
}

func (s *Service) ListMessagesSince(userID string, sinceID uint, limit int) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := s.DB.Where("recipient_id = ? AND id > ?", userID, sinceID).
		Order("id asc").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// --- Session records ---

func (s *Service) SaveSessionRecord(rec *models.SessionRecord) error {
	return s.DB.Save(rec).Error
}

func (s *Service) CloseSessionRecord(sessionID, reason string, messageCount int) error {
	return s.DB.Model(&models.SessionRecord{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"end_reason":    reason,
			"message_count": messageCount,
			"ended_at":      time.Now(),
		}).Error
}

func (s *Service) CountActiveSessionRecords() (int64, error) {
	var n int64
	err := s.DB.Model(&models.SessionRecord{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (s *Service) CountSessionRecords() (int64, error) {
	var n int64
	err := s.DB.Model(&models.SessionRecord{}).Count(&n).Error
	return n, err
}

// --- Reports ---

func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportStatusNew
	}
	if err := s.DB.Create(report).Error; err != nil {
		log.Error().Err(err).Str("session_id", report.SessionID).Msg("failed to save report")
		return err
	}
	return nil
}

func (s *Service) GetReportByID(id uint) (*models.Report, error) {
	var report models.Report
	if err := s.DB.First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) UpdateReportStatus(id uint, status string) error {
	return s.DB.Model(&models.Report{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Service) CountReportsSince(userID string, since time.Time) (int64, error) {
	var n int64
	err := s.DB.Model(&models.Report{}).
		Where("reported_user_id = ? AND created_at > ?", userID, since).
		Count(&n).Error
	return n, err
}

// --- Ban flags (Redis) ---

func (s *Service) IsUserBanned(userID string) (bool, error) {
	if s.Redis == nil {
		return false, ErrRedisUnavailable
	}
	status, err := s.Redis.Get(s.Ctx, banKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

func (s *Service) SetBanFlag(userID string, duration time.Duration) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	return s.Redis.Set(s.Ctx, banKeyPrefix+userID, "active", duration).Err()
}

func (s *Service) ClearBanFlag(userID string) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	return s.Redis.Del(s.Ctx, banKeyPrefix+userID).Err()
}

// --- Presence feed and waiting gauge (Redis) ---

// PublishPresence mirrors a presence transition onto the pub/sub
// channel the admin dashboard subscribes to.
func (s *Service) PublishPresence(userID string, status string) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	payload, err := json.Marshal(map[string]string{"user_id": userID, "status": status})
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, presenceChannel, payload).Err()
}

func (s *Service) AddWaiting(connID string) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	return s.Redis.SAdd(s.Ctx, waitingSetKey, connID).Err()
}

func (s *Service) RemoveWaiting(connID string) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	return s.Redis.SRem(s.Ctx, waitingSetKey, connID).Err()
}

// ResetWaiting clears the gauge. Called at startup: the in-memory
// queue is empty after a restart, so any mirrored entries are stale.
func (s *Service) ResetWaiting() error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	return s.Redis.Del(s.Ctx, waitingSetKey).Err()
}

func (s *Service) CountWaiting() (int64, error) {
	if s.Redis == nil {
		return 0, ErrRedisUnavailable
	}
	return s.Redis.SCard(s.Ctx, waitingSetKey).Result()
}
