package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// AddonPackHandler manages admin CRUD endpoints for addon credit packs.
type AddonPackHandler struct {
	db *gorm.DB
}

// NewAddonPackHandler constructs an addon pack handler.
func NewAddonPackHandler(db *gorm.DB) *AddonPackHandler {
	return &AddonPackHandler{db: db}
}

// createAddonPackRequest captures the payload for creating a pack.
type createAddonPackRequest struct {
	Name       string  `json:"name"`        // Pack name.
	CreditType string  `json:"credit_type"` // Credit type granted.
	Credits    int64   `json:"credits"`     // Credits granted on purchase.
	Price      float64 `json:"price"`       // Pack price.
	SortOrder  int     `json:"sort_order"`  // Display order.
	IsEnabled  *bool   `json:"is_enabled"`  // Optional active flag.
}

// Create validates input and inserts a new addon pack.
func (h *AddonPackHandler) Create(c *gin.Context) {
	var body createAddonPackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	creditType := models.CreditType(strings.TrimSpace(body.CreditType))
	if !creditType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit_type"})
		return
	}
	if body.Credits <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "credits must be positive"})
		return
	}

	isEnabled := true
	if body.IsEnabled != nil {
		isEnabled = *body.IsEnabled
	}

	now := time.Now().UTC()
	pack := models.AddonPack{
		Name:       strings.TrimSpace(body.Name),
		CreditType: creditType,
		Credits:    body.Credits,
		Price:      body.Price,
		SortOrder:  body.SortOrder,
		IsEnabled:  isEnabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&pack).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create addon pack failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatPack(&pack))
}

// List returns all addon packs, optionally filtered by enabled flag.
func (h *AddonPackHandler) List(c *gin.Context) {
	enabledQ := strings.TrimSpace(c.Query("is_enabled"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.AddonPack{})
	if enabledQ == "true" || enabledQ == "1" {
		q = q.Where("is_enabled = ?", true)
	} else if enabledQ == "false" || enabledQ == "0" {
		q = q.Where("is_enabled = ?", false)
	}

	var rows []models.AddonPack
	if errFind := q.Order("sort_order ASC, created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list addon packs failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatPack(&row))
	}
	c.JSON(http.StatusOK, gin.H{"addon_packs": out})
}

// updateAddonPackRequest captures optional fields for pack updates.
type updateAddonPackRequest struct {
	Name      *string  `json:"name"`       // Optional name update.
	Credits   *int64   `json:"credits"`    // Optional credit amount.
	Price     *float64 `json:"price"`      // Optional price.
	SortOrder *int     `json:"sort_order"` // Optional display order.
	IsEnabled *bool    `json:"is_enabled"` // Optional active flag.
}

// Update validates and applies addon pack field updates. The credit type
// is immutable once created; verified payments reference it.
func (h *AddonPackHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateAddonPackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var existing models.AddonPack
	if errFind := h.db.WithContext(c.Request.Context()).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if body.Name != nil {
		n := strings.TrimSpace(*body.Name)
		if n == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = n
	}
	if body.Credits != nil {
		if *body.Credits <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credits must be positive"})
			return
		}
		updates["credits"] = *body.Credits
	}
	if body.Price != nil {
		updates["price"] = *body.Price
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.IsEnabled != nil {
		updates["is_enabled"] = *body.IsEnabled
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.AddonPack{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes an addon pack by ID.
func (h *AddonPackHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.AddonPack{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AddonPackHandler) formatPack(pack *models.AddonPack) gin.H {
	return gin.H{
		"id":          pack.ID,
		"name":        pack.Name,
		"credit_type": pack.CreditType,
		"credits":     pack.Credits,
		"price":       pack.Price,
		"sort_order":  pack.SortOrder,
		"is_enabled":  pack.IsEnabled,
		"created_at":  pack.CreatedAt,
		"updated_at":  pack.UpdatedAt,
	}
}
