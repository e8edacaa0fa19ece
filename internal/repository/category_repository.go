package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumarket-api/internal/models"
)

const categorySelect = `SELECT c.id, c.name, c.slug, c.description, c.icon, c.status, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM listings l WHERE l.category_id = c.id AND l.status = 'approved') AS item_count
	FROM categories c`

// CategoryRepository manages marketplace categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListActive returns the categories shown on the marketplace, by name.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	query := categorySelect + ` WHERE c.status = 'active' ORDER BY c.name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	return categories, nil
}

// List returns all categories, optionally searched by name or description.
func (r *CategoryRepository) List(ctx context.Context, search string) ([]models.Category, error) {
	query := categorySelect
	var args []interface{}
	if search != "" {
		query += ` WHERE LOWER(c.name) LIKE $1 OR LOWER(c.description) LIKE $1`
		args = append(args, likePattern(search))
	}
	query += ` ORDER BY c.name ASC`

	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	query := categorySelect + ` WHERE c.id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(classify(err), sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (id, name, slug, description, icon, status, created_at, updated_at) VALUES (:id, :name, :slug, :description, :icon, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if errors.Is(classify(err), ErrDuplicate) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, slug = :slug, description = :description, icon = :icon, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		if errors.Is(classify(err), ErrDuplicate) {
			return ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res)
}

// Upsert inserts or refreshes a category keyed by slug. Used by the seeder.
func (r *CategoryRepository) Upsert(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (id, name, slug, description, icon, status, created_at, updated_at)
	VALUES (:id, :name, :slug, :description, :icon, :status, :created_at, :updated_at)
	ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("upsert category %s: %w", category.Slug, err)
	}
	return nil
}

// Delete removes a category. A category still used by listings yields ErrReferenced.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(classify(err), ErrReferenced) {
			return ErrReferenced
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res)
}
