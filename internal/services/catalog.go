package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService manages categories and products.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in CategoryInput) validate() error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
		return nil, apperr.Wrap(err)
	}
	return cats, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, notFound(err, "category %d not found", id)
	}
	return &cat, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cat := models.Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.uniqueCategoryName(tx, cat.Name, 0); err != nil {
			return err
		}
		return tx.Create(&cat).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &cat, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var cat models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cat, id).Error; err != nil {
			return notFound(err, "category %d not found", id)
		}
		name := strings.TrimSpace(in.Name)
		if err := s.uniqueCategoryName(tx, name, id); err != nil {
			return err
		}
		cat.Name = name
		cat.Description = in.Description
		return tx.Save(&cat).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &cat, nil
}

// DeleteCategory removes the category; its products lose their category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			return notFound(err, "category %d not found", id)
		}
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&cat).Error
	})
	return apperr.Wrap(err)
}

func (s *CatalogService) uniqueCategoryName(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Invalid(validation.Violations{"name": "already_exists"})
	}
	return nil
}

// ProductInput creates or replaces a product. Available defaults to true on create.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available"`
	CategoryID  *uint           `json:"category_id"`
}

// ProductFilter narrows product listings. Zero values mean no constraint.
type ProductFilter struct {
	Query         string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	OnlyAvailable bool
}

func (s *CatalogService) validateProduct(tx *gorm.DB, in ProductInput) error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	// prices are stored in cents, so 0.004 is a zero price
	validation.PositiveDecimal("price", in.Price.Round(2), v)
	if in.CategoryID != nil {
		var count int64
		if err := tx.Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			v["category_id"] = "not_found"
		}
	}
	if !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Category")
	if f.OnlyAvailable {
		q = q.Where("available = ?", true)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	var products []models.Product
	if err := q.Order("name").Order("id").Find(&products).Error; err != nil {
		return nil, apperr.Wrap(err)
	}
	return products, nil
}

// GetProduct returns a product; with onlyAvailable an unavailable product is NotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id uint, onlyAvailable bool) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, notFound(err, "product %d not found", id)
	}
	if onlyAvailable && !p.Available {
		return nil, apperr.NotFound("product %d not found", id)
	}
	return &p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Available:   in.Available == nil || *in.Available,
		CategoryID:  in.CategoryID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateProduct(tx, in); err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, "product %d not found", id)
		}
		if err := s.validateProduct(tx, in); err != nil {
			return err
		}
		p.Name = strings.TrimSpace(in.Name)
		p.Description = in.Description
		p.Price = in.Price.Round(2)
		p.CategoryID = in.CategoryID
		if in.Available != nil {
			p.Available = *in.Available
		}
		return tx.Omit("Category").Save(&p).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &p, nil
}

// DeleteProduct soft-deletes; order lines keep their snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return apperr.Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %d not found", id)
	}
	return nil
}

func (s *CatalogService) SetAvailability(ctx context.Context, id uint, available bool) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, "product %d not found", id)
		}
		p.Available = available
		return tx.Model(&p).Update("available", available).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &p, nil
}

// AveragePrice is the mean price of all products, rounded to cents; 0 when empty.
func (s *CatalogService) AveragePrice(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := s.db.WithContext(ctx).Model(&models.Product{}).Select("COALESCE(AVG(price), 0)").Row().Scan(&avg)
	if err != nil {
		return decimal.Zero, apperr.Wrap(err)
	}
	return avg.Round(2), nil
}
