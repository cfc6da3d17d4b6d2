package storage

import (
	"context"
	"errors"
	"lingochat/backend/internal/models"
	"log"

	"gorm.io/gorm"
)

func (s *Service) SaveReport(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportPending
	}

	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		log.Printf("ERROR: Failed to save report from user %d: %v", report.ReporterID, err)
		return err
	}
	return nil
}

func (s *Service) GetReportByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	err := s.DB.WithContext(ctx).First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns reports newest first. An empty status lists all of them.
func (s *Service) ListReports(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	q := s.DB.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) UpdateReport(ctx context.Context, report *models.Report) error {
	return s.DB.WithContext(ctx).Save(report).Error
}

func (s *Service) CountReportsByStatus(ctx context.Context, status models.ReportStatus) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Report{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
