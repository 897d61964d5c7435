package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/models"
	"github.com/inkwell-ai/creditledger/internal/security"
	internalsettings "github.com/inkwell-ai/creditledger/internal/settings"
)

// MFAHandler manages TOTP enrollment for the authenticated admin.
// Pending secrets live in memory until confirmed with a valid code.
type MFAHandler struct {
	db *gorm.DB

	mu      sync.Mutex
	pending map[uint64]string
}

// NewMFAHandler constructs an MFA handler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db, pending: make(map[uint64]string)}
}

// Status reports whether the current admin has TOTP enabled.
func (h *MFAHandler) Status(c *gin.Context) {
	adminID := c.GetUint64("adminID")
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPSecret != ""})
}

// PrepareTOTP generates a new TOTP secret and provisioning URL. The
// secret takes effect only after ConfirmTOTP validates a code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	adminID := c.GetUint64("adminID")
	username := c.GetString("adminUsername")

	issuer := internalsettings.DefaultSiteName
	if name, ok := internalsettings.Value(h.db, internalsettings.SiteNameKey); ok && name != "" {
		issuer = name
	}
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: username,
	})
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	h.mu.Lock()
	h.pending[adminID] = key.Secret()
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"secret": key.Secret(), "url": key.URL()})
}

// confirmTOTPRequest carries the verification code.
type confirmTOTPRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP validates the code against the pending secret and enables MFA.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID := c.GetUint64("adminID")
	h.mu.Lock()
	secret, ok := h.pending[adminID]
	h.mu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending totp enrollment"})
		return
	}
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(secret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enable totp failed"})
		return
	}
	h.mu.Lock()
	delete(h.pending, adminID)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the current admin's TOTP secret.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID := c.GetUint64("adminID")
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	h.mu.Lock()
	delete(h.pending, adminID)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
