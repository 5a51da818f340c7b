package store

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/wandergrowth/leadmux/model"
	"gorm.io/gorm"
)

// GormDraftStore is the Postgres-backed draft store. Every operation is a
// single-row read or write, so no explicit locking is needed as long as one
// process instance runs the schedulers; the unique index on
// original_external_id backstops the hunter's read-then-insert dedup.
type GormDraftStore struct {
	db *gorm.DB
}

func NewGormDraftStore(db *gorm.DB) *GormDraftStore {
	return &GormDraftStore{db: db}
}

func (s *GormDraftStore) FindByExternalId(externalId string) (*model.Draft, error) {
	var draft model.Draft
	res := s.db.Where("original_external_id = ?", externalId).First(&draft)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, errors.Wrap(res.Error, "fail to find draft by external id")
	}
	return &draft, nil
}

func (s *GormDraftStore) Insert(draft *model.Draft) error {
	if err := s.db.Create(draft).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDraft
		}
		return errors.Wrap(err, "fail to insert draft")
	}
	return nil
}

func (s *GormDraftStore) UpdateStatus(id string, status model.DraftStatus, fields UpdateFields) error {
	updates := map[string]interface{}{"status": status}
	if fields.LastError != nil {
		updates["last_error"] = *fields.LastError
	}
	if fields.IncrementAttempts {
		updates["publish_attempts"] = gorm.Expr("publish_attempts + 1")
	}
	if fields.PublishedAt != nil {
		updates["published_at"] = *fields.PublishedAt
	}
	if fields.ExternalPostId != nil {
		updates["external_post_id"] = *fields.ExternalPostId
	}
	if fields.MediaReference != nil {
		updates["media_reference"] = *fields.MediaReference
	}

	res := s.db.Model(&model.Draft{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return errors.Wrap(res.Error, "fail to update draft status")
	}
	if res.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

func (s *GormDraftStore) QueryTopEligible(minScore int, statuses []model.DraftStatus, limit int) ([]model.Draft, error) {
	var drafts []model.Draft
	res := s.db.
		Where("status IN ? AND score >= ?", statuses, minScore).
		Order("score desc, created_at desc").
		Limit(limit).
		Find(&drafts)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to query eligible drafts")
	}
	return drafts, nil
}

func (s *GormDraftStore) DeleteStale(statuses []model.DraftStatus, maxScore int, olderThan time.Time) (int64, error) {
	res := s.db.
		Where("status IN ? AND score <= ? AND created_at < ?", statuses, maxScore, olderThan).
		Delete(&model.Draft{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "fail to delete stale drafts")
	}
	return res.RowsAffected, nil
}

func (s *GormDraftStore) CountCreatedSince(t time.Time) (int64, error) {
	var count int64
	res := s.db.Model(&model.Draft{}).Where("created_at >= ?", t).Count(&count)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "fail to count created drafts")
	}
	return count, nil
}

func (s *GormDraftStore) CountPublishedSince(t time.Time) (int64, error) {
	var count int64
	res := s.db.Model(&model.Draft{}).
		Where("status = ? AND published_at >= ?", model.DraftStatusPublished, t).
		Count(&count)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "fail to count published drafts")
	}
	return count, nil
}

// isUniqueViolation matches the Postgres unique_violation error (23505)
// without importing the driver's error type.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
