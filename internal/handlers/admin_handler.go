// internal/handlers/admin_handler.go
package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"punchclock_backend/internal/models"
	"punchclock_backend/internal/punch"
)

// AdminHandler exposes read-only ledger audits.
type AdminHandler struct {
	DB     *gorm.DB
	Ledger *punch.Ledger
}

func NewAdminHandler(db *gorm.DB, ledger *punch.Ledger) *AdminHandler {
	return &AdminHandler{DB: db, Ledger: ledger}
}

// VerifyChain recomputes the device's hash chain.
func (h *AdminHandler) VerifyChain(c *gin.Context) {
	deviceID := strings.TrimSpace(c.Param("id"))

	report, err := h.Ledger.VerifyChain(c.Request.Context(), deviceID)
	if err != nil {
		log.Printf("chain verification failed: device=%s: %v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if !report.Valid {
		log.Printf("chain broken: device=%s index=%d reason=%s", deviceID, report.Break.Index, report.Break.Reason)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": report})
}

// ListDeviceEvents returns the latest 50 events recorded for a device.
func (h *AdminHandler) ListDeviceEvents(c *gin.Context) {
	deviceID := strings.TrimSpace(c.Param("id"))

	var rows []models.PunchEvent
	if err := h.DB.WithContext(c.Request.Context()).
		Where("device_id = ?", deviceID).
		Order("received_at desc, id desc").
		Limit(50).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": eventViews(rows)})
}
