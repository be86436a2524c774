package repository

import (
	"context"

	"github.com/dimz119/project-saeum/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines data access for the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	UpsertCategory(ctx context.Context, category *models.Category) error
	UpsertBrand(ctx context.Context, brand *models.Brand) error
	UpsertTag(ctx context.Context, tag *models.Tag) error
	UpsertProduct(ctx context.Context, product *models.Product) (bool, error)
}

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID returns a live (not soft-deleted) product.
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the live products among ids. Missing ids are simply absent.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock lowers stock by qty only if at least qty units remain.
// It returns ErrInsufficientStock when no row qualified.
func (r *GormProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// UpsertCategory inserts the category or loads the existing one with the same slug.
func (r *GormProductRepository) UpsertCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Where(models.Category{Slug: category.Slug}).FirstOrCreate(category).Error
}

func (r *GormProductRepository) UpsertBrand(ctx context.Context, brand *models.Brand) error {
	return r.db.WithContext(ctx).Where(models.Brand{Slug: brand.Slug}).FirstOrCreate(brand).Error
}

func (r *GormProductRepository) UpsertTag(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Where(models.Tag{Slug: tag.Slug}).FirstOrCreate(tag).Error
}

// UpsertProduct creates the product unless one with the same slug exists. Tags
// are linked either way. It reports whether a row was created.
func (r *GormProductRepository) UpsertProduct(ctx context.Context, product *models.Product) (bool, error) {
	tags := product.Tags
	product.Tags = nil

	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Where(models.Product{Slug: product.Slug}).
		FirstOrCreate(product)
	if result.Error != nil {
		return false, result.Error
	}
	created := result.RowsAffected > 0

	if len(tags) > 0 {
		if err := r.db.WithContext(ctx).Model(product).Association("Tags").Append(tags); err != nil {
			return created, err
		}
	}
	product.Tags = tags
	return created, nil
}
