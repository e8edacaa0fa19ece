package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumarket-api/internal/models"
)

var reportColumns = []string{
	"r.id", "r.type", "r.reporter_id", "r.listing_id", "r.reported_user_id", "r.reason", "r.description",
	"r.priority", "r.status", "r.resolution", "r.created_at", "r.updated_at",
	"COALESCE(l.title, '') AS reported_item",
	"rp.full_name AS reported_by",
	"COALESCE(ru.full_name, '') AS reported_user_name",
}

// ReportRepository persists user reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func selectReports(columns ...string) sq.SelectBuilder {
	return psql.Select(columns...).
		From("reports r").
		Join("profiles rp ON rp.id = r.reporter_id").
		LeftJoin("listings l ON l.id = r.listing_id").
		LeftJoin("profiles ru ON ru.id = r.reported_user_id")
}

func applyReportFilter(b sq.SelectBuilder, filter models.ReportFilter) sq.SelectBuilder {
	if filter.Status != "" {
		b = b.Where(sq.Eq{"r.status": filter.Status})
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{"r.type": filter.Type})
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		b = b.Where(sq.Or{
			sq.Expr("LOWER(COALESCE(l.title, '')) LIKE ?", pattern),
			sq.Expr("LOWER(rp.full_name) LIKE ?", pattern),
			sq.Expr("LOWER(COALESCE(ru.full_name, '')) LIKE ?", pattern),
			sq.Expr("LOWER(r.reason) LIKE ?", pattern),
		})
	}
	return b
}

// Create inserts a new report.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	query, args, err := psql.Insert("reports").
		Columns("id", "type", "reporter_id", "listing_id", "reported_user_id", "reason", "description", "priority", "status", "created_at", "updated_at").
		Values(report.ID, report.Type, report.ReporterID, report.ListingID, report.ReportedUserID, report.Reason, report.Description, report.Priority, report.Status, report.CreatedAt, report.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create report: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if errors.Is(classify(err), ErrReferenced) {
			return ErrReferenced
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// List returns one page of reports, highest priority and newest first.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	_, pageSize, offset := normalizePage(filter.Page, filter.PageSize)
	query, args, err := applyReportFilter(selectReports(reportColumns...), filter).
		OrderBy("CASE r.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END", "r.created_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reports: %w", err)
	}
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery, countArgs, err := applyReportFilter(selectReports("COUNT(*)"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count reports: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// FindByID returns a report by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query, args, err := selectReports(reportColumns...).Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find report: %w", err)
	}
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(classify(err), sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

// UpdateStatus records the admin decision on a report still in status from.
// It returns sql.ErrNoRows when the guard fails.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus, resolution *string) error {
	query, args, err := psql.Update("reports").
		Set("status", to).
		Set("resolution", resolution).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update report: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return expectOne(res)
}
