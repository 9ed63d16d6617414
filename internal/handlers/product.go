// internal/handlers/product.go
package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/i18n"
	"github.com/ludora/ludora-backend/internal/services"
	"github.com/ludora/ludora-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	product, err := h.productService.CreateProduct(userID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "only teachers") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to create product")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, product, gin.H{"message": i18n.T(lang, i18n.KeyProductCreated)})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	product, err := h.productService.UpdateProduct(productID, userID, &req)
	if err != nil {
		h.respondProductError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, product, gin.H{"message": i18n.T(lang, i18n.KeyProductUpdated)})
}

func (h *ProductHandler) PublishProduct(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	product, err := h.productService.PublishProduct(productID, userID)
	if err != nil {
		h.respondProductError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, product, gin.H{"message": i18n.T(lang, i18n.KeyProductPublished)})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	if err := h.productService.DeleteProduct(productID, userID); err != nil {
		if strings.Contains(err.Error(), "sales cannot be deleted") {
			utils.ConflictResponse(c, "HAS_SALES", err.Error())
			return
		}
		h.respondProductError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, gin.H{"deleted": true}, gin.H{"message": i18n.T(lang, i18n.KeyProductDeleted)})
}

// GetProduct is public; authenticated callers additionally get their
// purchase record and access decision.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	userID := optionalUserID(c)

	product, decision, err := h.productService.GetProduct(productID, userID)
	if err != nil {
		h.respondProductError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, product, gin.H{"access": decision})
}

// GetProductAccess returns just the access decision for a product.
func (h *ProductHandler) GetProductAccess(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	userID := optionalUserID(c)

	decision, err := h.productService.ResolveAccess(productID, userID)
	if err != nil {
		h.respondProductError(c, err)
		return
	}

	utils.SuccessResponse(c, decision)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	productType := c.Query("type")
	userID := optionalUserID(c)

	result, err := h.productService.ListProducts(params, productType, userID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list products")
		return
	}

	utils.PaginatedResponse(c, *result)
}

func (h *ProductHandler) ListPopular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	products, err := h.productService.ListPopular(limit)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list popular products")
		return
	}

	utils.SuccessResponse(c, products)
}

func (h *ProductHandler) ListFeatured(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	products, err := h.productService.ListFeatured(limit)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list featured products")
		return
	}

	utils.SuccessResponse(c, products)
}

func (h *ProductHandler) ListMyProducts(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.productService.ListCreatorProducts(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list products")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// UploadProductFile stores a content file on S3 and records it on the
// product. Creator-only.
func (h *ProductHandler) UploadProductFile(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "File is required", nil)
		return
	}

	// Ownership check reuses the update path with an empty request.
	if _, err := h.productService.UpdateProduct(productID, userID, &services.UpdateProductRequest{}); err != nil {
		h.respondProductError(c, err)
		return
	}

	result, err := h.storageService.UploadProductFile(productID, fileHeader)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		if strings.Contains(err.Error(), "not allowed") {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed))
		return
	}

	if _, err := h.productService.AttachFile(productID, result.Key, result.URL); err != nil {
		utils.InternalErrorResponse(c, "Failed to record uploaded file")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, result, gin.H{"message": i18n.T(lang, i18n.KeyFileUploadSuccess)})
}

// DownloadProduct hands out a presigned URL when the caller has access.
func (h *ProductHandler) DownloadProduct(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	decision, err := h.productService.ResolveAccess(productID, &userID)
	if err != nil {
		h.respondProductError(c, err)
		return
	}
	if !decision.HasAccess {
		utils.ForbiddenResponse(c, "Purchase required to download this content")
		return
	}

	product, _, err := h.productService.GetProduct(productID, &userID)
	if err != nil {
		h.respondProductError(c, err)
		return
	}
	if product.FileKey == "" {
		utils.ErrorResponse(c, 404, "NO_FILE", "Product has no downloadable file", nil)
		return
	}

	url, err := h.storageService.PresignedDownloadURL(product.FileKey, 15*time.Minute)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to generate download URL")
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url, "expires_in": 900})
}

func (h *ProductHandler) respondProductError(c *gin.Context, err error) {
	switch {
	case strings.Contains(err.Error(), "not found"):
		utils.NotFoundResponse(c, "product")
	case strings.Contains(err.Error(), "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(err.Error(), "suspended"):
		utils.ConflictResponse(c, "SUSPENDED", err.Error())
	default:
		utils.InternalErrorResponse(c, "Product operation failed")
	}
}

// optionalUserID returns the caller's id when authenticated, nil otherwise.
func optionalUserID(c *gin.Context) *uuid.UUID {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	return &userID
}
