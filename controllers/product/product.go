package productControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

// -------- Request Structs --------

type SizeStockInput struct {
	Size  string `json:"size" binding:"required"`
	Stock int    `json:"stock" binding:"min=0"`
}

type ProductInput struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Price         float64          `json:"price" binding:"required,gt=0"`
	OriginalPrice float64          `json:"original_price"`
	Image         string           `json:"image"`
	Stock         int              `json:"stock" binding:"min=0"`
	Sizes         []SizeStockInput `json:"sizes"`
	IsActive      *bool            `json:"is_active"`
	CategoryIDs   []uint           `json:"category_ids"`
}

// -------- Handlers --------

// ListProductsHandler returns active products for the storefront.
func ListProductsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []models.Product
		query := db.Preload("Sizes").Preload("Categories")
		if categoryID := c.Query("category_id"); categoryID != "" {
			query = query.Joins("JOIN product_categories pc ON pc.product_id = products.id").
				Where("pc.category_id = ?", categoryID)
		}
		if err := query.Where("is_active = ?", true).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GetProductHandler returns one product by id.
func GetProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Preload("Sizes").Preload("Categories").First(&product, "id = ?", c.Param("productID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// CreateProductHandler adds a product with sizes and categories (admin).
func CreateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		active := true
		if input.IsActive != nil {
			active = *input.IsActive
		}

		sizes := make([]models.SizeStock, 0, len(input.Sizes))
		for _, s := range input.Sizes {
			sizes = append(sizes, models.SizeStock{Size: s.Size, Stock: s.Stock})
		}

		product := models.Product{
			Name:          input.Name,
			Description:   input.Description,
			Price:         input.Price,
			OriginalPrice: input.OriginalPrice,
			Image:         input.Image,
			Stock:         input.Stock,
			Sizes:         sizes,
			IsActive:      active,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if len(input.CategoryIDs) > 0 {
				var categories []models.Category
				if err := tx.Find(&categories, input.CategoryIDs).Error; err != nil {
					return err
				}
				product.Categories = categories
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			if len(product.Categories) > 0 {
				ids := make([]uint, 0, len(product.Categories))
				for _, cat := range product.Categories {
					ids = append(ids, cat.ID)
				}
				if err := tx.Model(&models.Category{}).Where("id IN ?", ids).
					UpdateColumn("product_count", gorm.Expr("product_count + 1")).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// UpdateProductHandler edits product fields (admin). Stock set here is an
// absolute correction, not a delta.
func UpdateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Preload("Sizes").First(&product, "id = ?", c.Param("productID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
			return
		}

		var input struct {
			Name          *string          `json:"name"`
			Description   *string          `json:"description"`
			Price         *float64         `json:"price"`
			OriginalPrice *float64         `json:"original_price"`
			Image         *string          `json:"image"`
			Stock         *int             `json:"stock"`
			IsActive      *bool            `json:"is_active"`
			Sizes         []SizeStockInput `json:"sizes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Price != nil {
			if *input.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
				return
			}
			updates["price"] = *input.Price
		}
		if input.OriginalPrice != nil {
			updates["original_price"] = *input.OriginalPrice
		}
		if input.Image != nil {
			updates["image"] = *input.Image
		}
		if input.Stock != nil {
			if *input.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "stock must not be negative"})
				return
			}
			updates["stock"] = *input.Stock
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if len(updates) > 0 {
				if err := tx.Model(&product).Updates(updates).Error; err != nil {
					return err
				}
			}
			if input.Sizes != nil {
				if err := tx.Where("product_id = ?", product.ID).Delete(&models.SizeStock{}).Error; err != nil {
					return err
				}
				for _, s := range input.Sizes {
					if err := tx.Create(&models.SizeStock{ProductID: product.ID, Size: s.Size, Stock: s.Stock}).Error; err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully"})
	}
}

// DeleteProductHandler soft-deletes a product (admin). Products referenced
// by an order are deactivated instead, keeping order snapshots resolvable.
func DeleteProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Preload("Categories").First(&product, "id = ?", c.Param("productID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
			return
		}

		var referenced int64
		if err := db.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).Count(&referenced).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check product references"})
			return
		}
		if referenced > 0 {
			if err := db.Model(&product).Update("is_active", false).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate product"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Product is referenced by orders; deactivated instead"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if len(product.Categories) > 0 {
				ids := make([]uint, 0, len(product.Categories))
				for _, cat := range product.Categories {
					ids = append(ids, cat.ID)
				}
				if err := tx.Model(&models.Category{}).Where("id IN ? AND product_count > 0", ids).
					UpdateColumn("product_count", gorm.Expr("product_count - 1")).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&product).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}
