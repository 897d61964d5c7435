package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// FeatureGrantHandler manages time-boxed feature unlocks for users.
type FeatureGrantHandler struct {
	db *gorm.DB
}

// NewFeatureGrantHandler constructs a feature grant handler.
func NewFeatureGrantHandler(db *gorm.DB) *FeatureGrantHandler {
	return &FeatureGrantHandler{db: db}
}

// grantFeatureRequest captures a feature grant upsert.
type grantFeatureRequest struct {
	Feature   string `json:"feature"`    // Feature to unlock.
	ExpiresAt string `json:"expires_at"` // RFC 3339 expiry.
}

// Upsert grants a feature to a user, overwriting any existing expiry.
func (h *FeatureGrantHandler) Upsert(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body grantFeatureRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	feature := models.Feature(strings.TrimSpace(body.Feature))
	if !feature.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature"})
		return
	}
	expiresAt, errTime := time.Parse(time.RFC3339, strings.TrimSpace(body.ExpiresAt))
	if errTime != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expires_at"})
		return
	}
	now := time.Now().UTC()
	if !expiresAt.After(now) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be in the future"})
		return
	}

	grant := models.FeatureGrant{
		UserID:    userID,
		Feature:   feature,
		ExpiresAt: expiresAt.UTC(),
		GrantedBy: c.GetString("adminUsername"),
		GrantedAt: now,
	}
	errUpsert := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at", "granted_by", "granted_at", "updated_at"}),
		}).
		Create(&grant).Error
	if errUpsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "grant feature failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// List returns a user's feature grants, expired included.
func (h *FeatureGrantHandler) List(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var rows []models.FeatureGrant
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("feature ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list feature grants failed"})
		return
	}
	now := time.Now().UTC()
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"feature":    row.Feature,
			"expires_at": row.ExpiresAt,
			"granted_by": row.GrantedBy,
			"granted_at": row.GrantedAt,
			"expired":    now.After(row.ExpiresAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{"feature_grants": out})
}

// Revoke removes a feature grant.
func (h *FeatureGrantHandler) Revoke(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	feature := models.Feature(strings.TrimSpace(c.Param("feature")))
	if !feature.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND feature = ?", userID, feature).
		Delete(&models.FeatureGrant{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
