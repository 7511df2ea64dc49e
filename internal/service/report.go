package service

import (
	"context"
	"fmt"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/repository"
)

// ReportService serves the admin sales dashboard.
type ReportService struct {
	repo repository.ReportRepository
}

// NewReportService creates a report service.
func NewReportService(repo repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// Sales aggregates order counts, revenue, status breakdown, top products and
// payment totals.
func (s *ReportService) Sales(ctx context.Context) (*domain.SalesReport, error) {
	report, err := s.repo.Sales(ctx)
	if err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}
	return report, nil
}
