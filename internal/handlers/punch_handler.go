// internal/handlers/punch_handler.go
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"punchclock_backend/internal/middleware"
	"punchclock_backend/internal/models"
	"punchclock_backend/internal/punch"
)

type PunchHandler struct {
	Svc *punch.Service
}

func NewPunchHandler(svc *punch.Service) *PunchHandler { return &PunchHandler{Svc: svc} }

type geoFields struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
}

func (g geoFields) geo() *punch.Geo {
	if g.Latitude == nil || g.Longitude == nil {
		return nil
	}
	return &punch.Geo{Lat: *g.Latitude, Lng: *g.Longitude, Accuracy: g.Accuracy}
}

type ScanReq struct {
	Payload string `json:"payload" binding:"required"`
	geoFields
}

type RedeemReq struct {
	Code string `json:"code" binding:"required"`
	geoFields
}

// Scan records a punch from a QR payload.
func (h *PunchHandler) Scan(c *gin.Context) {
	var req ScanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": err.Error()})
		return
	}
	h.punch(c, punch.ScannedPayload{Raw: req.Payload}, req.geo())
}

// Redeem records a punch from a manager-issued manual code.
func (h *PunchHandler) Redeem(c *gin.Context) {
	var req RedeemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": err.Error()})
		return
	}
	h.punch(c, punch.ManualCode{Code: req.Code}, req.geo())
}

func (h *PunchHandler) punch(c *gin.Context, src punch.Source, geo *punch.Geo) {
	employeeID := c.GetUint(middleware.CtxEmployeeID)

	res, err := h.Svc.Punch(c.Request.Context(), punch.PunchRequest{
		EmployeeID: employeeID,
		Source:     src,
		Geo:        geo,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		status, reason := punch.HTTPStatus(err)
		log.Printf("punch rejected: employee=%d status=%d: %v", employeeID, status, err)
		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": res})
}

// IssueManualCode hands the manager a code to read out to an employee.
func (h *PunchHandler) IssueManualCode(c *gin.Context) {
	managerID := c.GetUint(middleware.CtxEmployeeID)

	issued, err := h.Svc.IssueManualCode(c.Request.Context(), managerID)
	if err != nil {
		status, reason := punch.HTTPStatus(err)
		log.Printf("manual code issue failed: manager=%d: %v", managerID, err)
		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"code":         issued.Code,
		"display_code": issued.DisplayCode,
		"payload":      issued.Payload,
		"expires_at":   issued.ExpiresAt,
	})
}

func (h *PunchHandler) Today(c *gin.Context) {
	employeeID := c.GetUint(middleware.CtxEmployeeID)

	rows, err := h.Svc.Today(c.Request.Context(), employeeID)
	if err != nil {
		log.Printf("today listing failed: employee=%d: %v", employeeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": eventViews(rows)})
}

func eventViews(rows []models.PunchEvent) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, ev := range rows {
		out = append(out, gin.H{
			"id":           ev.ID,
			"employee_id":  ev.EmployeeID,
			"device_id":    ev.DeviceID,
			"type":         ev.Type,
			"entry_method": ev.EntryMethod,
			"device_time":  ev.DeviceTime,
			"received_at":  ev.ReceivedAt,
			"latitude":     ev.Latitude,
			"longitude":    ev.Longitude,
			"accuracy":     ev.Accuracy,
			"nonce":        ev.Nonce,
			"hash":         ev.Hash,
			"prev_hash":    ev.PrevHashOrNil(),
		})
	}
	return out
}
