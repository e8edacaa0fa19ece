package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumarket-api/internal/models"
)

var listingColumns = []string{
	"l.id", "l.owner_id", "l.category_id", "l.title", "l.description", "l.price", "l.status",
	"l.download_count", "l.file_path", "l.file_name", "l.file_size", "l.file_mime", "l.preview_paths",
	"l.university", "l.course_code", "l.subject", "l.language", "l.tags", "l.rejection_reason",
	"l.reviewed_by", "l.reviewed_at", "l.created_at", "l.updated_at",
	"p.full_name AS owner_name", "c.name AS category_name", "c.slug AS category_slug",
}

var listingSorts = map[string]string{
	"recent":     "l.created_at DESC",
	"popular":    "l.download_count DESC, l.created_at DESC",
	"price-low":  "l.price ASC, l.created_at DESC",
	"price-high": "l.price DESC, l.created_at DESC",
	"title":      "LOWER(l.title) ASC",
}

// ListingRepository persists listings joined with their owner and category.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a ListingRepository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func selectListings() sq.SelectBuilder {
	return psql.Select(listingColumns...).
		From("listings l").
		Join("profiles p ON p.id = l.owner_id").
		Join("categories c ON c.id = l.category_id")
}

func applyListingFilter(b sq.SelectBuilder, filter models.ListingFilter) sq.SelectBuilder {
	if filter.Status != "" {
		b = b.Where(sq.Eq{"l.status": filter.Status})
	}
	if filter.OwnerID != "" {
		b = b.Where(sq.Eq{"l.owner_id": filter.OwnerID})
	}
	if category := strings.TrimSpace(filter.Category); category != "" && !strings.EqualFold(category, "all") {
		b = b.Where(sq.Or{
			sq.Expr("LOWER(c.slug) = LOWER(?)", category),
			sq.Expr("c.id::text = ?", category),
		})
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		if filter.AdminView {
			b = b.Where(sq.Or{
				sq.Expr("LOWER(l.title) LIKE ?", pattern),
				sq.Expr("LOWER(p.full_name) LIKE ?", pattern),
				sq.Expr("LOWER(COALESCE(l.university, '')) LIKE ?", pattern),
			})
		} else {
			b = b.Where(sq.Or{
				sq.Expr("LOWER(l.title) LIKE ?", pattern),
				sq.Expr("LOWER(l.description) LIKE ?", pattern),
			})
		}
	}
	return b
}

// List returns one page of listings matching filter and the total match count.
func (r *ListingRepository) List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	_, pageSize, offset := normalizePage(filter.Page, filter.PageSize)
	order, ok := listingSorts[filter.Sort]
	if !ok {
		order = listingSorts["recent"]
	}

	query, args, err := applyListingFilter(selectListings(), filter).
		OrderBy(order).
		Limit(uint64(pageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list listings: %w", err)
	}
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	countQuery, countArgs, err := applyListingFilter(
		psql.Select("COUNT(*)").
			From("listings l").
			Join("profiles p ON p.id = l.owner_id").
			Join("categories c ON c.id = l.category_id"),
		filter,
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count listings: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	return listings, total, nil
}

// ListByOwner returns every listing of an owner, newest first.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	query, args, err := selectListings().
		Where(sq.Eq{"l.owner_id": ownerID}).
		OrderBy(listingSorts["recent"]).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owner listings: %w", err)
	}
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return listings, nil
}

// FindByID returns a listing by identifier.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	query, args, err := selectListings().Where(sq.Eq{"l.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find listing: %w", err)
	}
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, args...); err != nil {
		if errors.Is(classify(err), sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &listing, nil
}

// Create inserts a listing.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.PreviewPaths == nil {
		listing.PreviewPaths = []string{}
	}
	if listing.Tags == nil {
		listing.Tags = []string{}
	}

	const query = `INSERT INTO listings (id, owner_id, category_id, title, description, price, status, download_count, file_path, file_name, file_size, file_mime, preview_paths, university, course_code, subject, language, tags, created_at, updated_at)
	VALUES (:id, :owner_id, :category_id, :title, :description, :price, :status, 0, :file_path, :file_name, :file_size, :file_mime, :preview_paths, :university, :course_code, :subject, :language, :tags, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		if errors.Is(classify(err), ErrReferenced) {
			return ErrReferenced
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// Update stores edited metadata. Status and files are left untouched.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE listings SET category_id = :category_id, title = :title, description = :description, price = :price, university = :university, course_code = :course_code, subject = :subject, language = :language, tags = :tags, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, listing)
	if err != nil {
		if errors.Is(classify(err), ErrReferenced) {
			return ErrReferenced
		}
		return fmt.Errorf("update listing: %w", err)
	}
	return expectOne(res)
}

// Transition moves a listing from one status to the next only if it is still
// in the expected status. It returns sql.ErrNoRows when the guard fails.
func (r *ListingRepository) Transition(ctx context.Context, id string, from, to models.ListingStatus, reviewerID string, reason *string, at time.Time) error {
	query, args, err := psql.Update("listings").
		Set("status", to).
		Set("reviewed_by", reviewerID).
		Set("reviewed_at", at).
		Set("rejection_reason", reason).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build transition listing: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition listing: %w", err)
	}
	return expectOne(res)
}

// Delete removes a listing row; download receipts cascade.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return expectOne(res)
}
