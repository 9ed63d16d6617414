// internal/services/product_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/access"
	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

type CreateProductRequest struct {
	Title       string                 `json:"title" validate:"required,max=255"`
	Description string                 `json:"description" validate:"required"`
	ProductType string                 `json:"product_type" validate:"required,oneof=file course workshop tool game lesson_plan"`
	Price       *float64               `json:"price" validate:"omitempty,gte=0"`
	EntityID    *uuid.UUID             `json:"entity_id"`
	Subjects    []string               `json:"subjects"`
	GradeLevels []string               `json:"grade_levels"`
	Tags        []string               `json:"tags"`
	Attributes  map[string]interface{} `json:"attributes"`
}

type UpdateProductRequest struct {
	Title       string                 `json:"title" validate:"omitempty,max=255"`
	Description string                 `json:"description"`
	Price       *float64               `json:"price" validate:"omitempty,gte=0"`
	Subjects    []string               `json:"subjects"`
	GradeLevels []string               `json:"grade_levels"`
	Tags        []string               `json:"tags"`
	Attributes  map[string]interface{} `json:"attributes"`
}

func (s *ProductService) CreateProduct(creatorID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	var creator models.User
	if err := s.db.First(&creator, "id = ?", creatorID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	if creator.UserType != models.UserTypeTeacher && creator.UserType != models.UserTypeAdmin {
		return nil, errors.New("only teachers can create products")
	}

	product := &models.Product{
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
		ProductType: models.ProductType(req.ProductType),
		Price:       req.Price,
		EntityID:    req.EntityID,
		Subjects:    pq.StringArray(req.Subjects),
		GradeLevels: pq.StringArray(req.GradeLevels),
		Tags:        pq.StringArray(req.Tags),
		Attributes:  models.JSONB(req.Attributes),
		Status:      models.ProductStatusDraft,
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id":   product.ID,
		"creator_id":   creatorID,
		"product_type": product.ProductType,
	}).Info("Product created")

	return product, nil
}

func (s *ProductService) UpdateProduct(productID, userID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.getOwnedProduct(productID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Price != nil {
		updates["price"] = req.Price
	}
	if req.Subjects != nil {
		updates["subjects"] = pq.StringArray(req.Subjects)
	}
	if req.GradeLevels != nil {
		updates["grade_levels"] = pq.StringArray(req.GradeLevels)
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.Attributes != nil {
		updates["attributes"] = models.JSONB(req.Attributes)
	}

	if len(updates) > 0 {
		if err := s.db.Model(product).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return product, nil
}

func (s *ProductService) PublishProduct(productID, userID uuid.UUID) (*models.Product, error) {
	product, err := s.getOwnedProduct(productID, userID)
	if err != nil {
		return nil, err
	}
	if product.Status == models.ProductStatusSuspended {
		return nil, errors.New("suspended products cannot be published")
	}

	if err := s.db.Model(product).Update("status", models.ProductStatusPublished).Error; err != nil {
		return nil, err
	}
	product.Status = models.ProductStatusPublished
	return product, nil
}

func (s *ProductService) DeleteProduct(productID, userID uuid.UUID) error {
	product, err := s.getOwnedProduct(productID, userID)
	if err != nil {
		return err
	}

	var salesCount int64
	s.db.Model(&models.Purchase{}).
		Where("(purchasable_id = ? OR product_id = ?) AND payment_status IN ?",
			productID, productID, []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusCompleted}).
		Count(&salesCount)
	if salesCount > 0 {
		return errors.New("products with sales cannot be deleted")
	}

	return s.db.Delete(product).Error
}

// GetProduct returns a product with the caller's purchase record attached
// and the access decision computed. Anonymous callers get the nil-purchases
// decision.
func (s *ProductService) GetProduct(productID uuid.UUID, userID *uuid.UUID) (*models.Product, *access.Decision, error) {
	var product models.Product
	err := s.db.Preload("Creator").First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.New("product not found")
		}
		return nil, nil, err
	}

	var purchases []models.Purchase
	if userID != nil {
		if err := s.db.Where("buyer_id = ?", *userID).Find(&purchases).Error; err != nil {
			return nil, nil, err
		}
	}

	decision := access.Resolve(&product, purchases, time.Now())
	if decision.Purchase != nil {
		product.Purchase = decision.Purchase
	}

	s.db.Model(&product).UpdateColumn("view_count", gorm.Expr("view_count + 1"))

	return &product, &decision, nil
}

// ResolveAccess computes the access decision for a product without loading
// relationships, for GET /products/:id/access.
func (s *ProductService) ResolveAccess(productID uuid.UUID, userID *uuid.UUID) (*access.Decision, error) {
	var product models.Product
	err := s.db.First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}

	var purchases []models.Purchase
	if userID != nil {
		if err := s.db.Where("buyer_id = ?", *userID).Find(&purchases).Error; err != nil {
			return nil, err
		}
	}

	decision := access.Resolve(&product, purchases, time.Now())
	return &decision, nil
}

type ProductListItem struct {
	models.Product
	Access access.Decision `json:"access"`
}

// ListProducts returns published products with per-product access decisions
// for the caller. One purchase query covers the whole page.
func (s *ProductService) ListProducts(params utils.PaginationParams, productType string, userID *uuid.UUID) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{}).Where("status = ?", models.ProductStatusPublished)

	if productType != "" {
		query = query.Where("product_type = ?", productType)
	}
	if params.Subject != "" {
		query = query.Where("? = ANY(subjects)", params.Subject)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "price", "title", "view_count", "sales_count"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Creator").Find(&products).Error; err != nil {
		return nil, err
	}

	var purchases []models.Purchase
	if userID != nil {
		if err := s.db.Where("buyer_id = ?", *userID).Find(&purchases).Error; err != nil {
			return nil, err
		}
	}

	now := time.Now()
	items := make([]ProductListItem, len(products))
	for i := range products {
		items[i] = ProductListItem{
			Product: products[i],
			Access:  access.Resolve(&products[i], purchases, now),
		}
	}

	result := utils.CreatePaginationResult(items, total, params)
	return &result, nil
}

// ListPopular returns the most purchased published products.
func (s *ProductService) ListPopular(limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var products []models.Product
	err := s.db.Where("status = ?", models.ProductStatusPublished).
		Order("sales_count DESC, view_count DESC").
		Limit(limit).
		Preload("Creator").
		Find(&products).Error
	return products, err
}

// ListFeatured returns published products flagged featured in attributes.
func (s *ProductService) ListFeatured(limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var products []models.Product
	err := s.db.Where("status = ? AND attributes->>'featured' = 'true'", models.ProductStatusPublished).
		Order("created_at DESC").
		Limit(limit).
		Preload("Creator").
		Find(&products).Error
	return products, err
}

// ListCreatorProducts returns all of a creator's products regardless of
// status, for the creator dashboard.
func (s *ProductService) ListCreatorProducts(creatorID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{}).Where("creator_id = ?", creatorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "price", "title", "sales_count"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

// AttachFile records an uploaded content file on the product row.
func (s *ProductService) AttachFile(productID uuid.UUID, fileKey, fileURL string) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"file_key": fileKey,
		"file_url": fileURL,
	}
	if err := s.db.Model(&product).Updates(updates).Error; err != nil {
		return nil, err
	}
	product.FileKey = fileKey
	product.FileURL = fileURL
	return &product, nil
}

func (s *ProductService) getOwnedProduct(productID, userID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}

	if product.CreatorID != userID {
		var user models.User
		if err := s.db.First(&user, "id = ?", userID).Error; err != nil || user.UserType != models.UserTypeAdmin {
			return nil, errors.New("access denied")
		}
	}
	return &product, nil
}
