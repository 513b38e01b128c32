package services

import (
	"log"

	"github.com/scolarfaso/backend/internal/models"
	"gorm.io/gorm"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record writes one authentication event. Audit writes never fail the request
// they describe; a failed insert is only logged.
func (s *AuditService) Record(action, phoneNumber, purpose, outcome, detail, ipAddress, userAgent string) {
	entry := &models.AuditLog{
		Action:    action,
		Phone:     phoneNumber,
		Purpose:   purpose,
		Outcome:   outcome,
		Detail:    detail,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Printf("WARN: audit write failed (%s/%s): %v", action, outcome, err)
	}
}

// RecordResult classifies err per the taxonomy and records the event.
func (s *AuditService) RecordResult(action, phoneNumber, purpose string, err error, ipAddress, userAgent string) {
	outcome := models.OutcomeSuccess
	detail := ""
	if err != nil {
		detail = err.Error()
		if IsDependencyError(err) {
			outcome = models.OutcomeDependency
		} else {
			outcome = models.OutcomeUserError
		}
	}
	s.Record(action, phoneNumber, purpose, outcome, detail, ipAddress, userAgent)
}

// GetRecentEvents retrieves recent auth events with pagination, newest first.
func (s *AuditService) GetRecentEvents(page, limit int, phoneNumber, action string) ([]*models.AuditLog, int64, error) {
	var logs []*models.AuditLog
	var total int64

	query := s.db.Model(&models.AuditLog{})
	if phoneNumber != "" {
		query = query.Where("phone = ?", phoneNumber)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
