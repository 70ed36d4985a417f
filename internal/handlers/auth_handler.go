// internal/handlers/auth_handler.go
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"punchclock_backend/internal/directory"
	"punchclock_backend/internal/middleware"
	"punchclock_backend/internal/models"
	"punchclock_backend/internal/utils"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	Dir       *directory.Directory
	JWTSecret string
	Now       func() time.Time
}

func NewAuthHandler(dir *directory.Directory, secret string) *AuthHandler {
	return &AuthHandler{Dir: dir, JWTSecret: secret, Now: time.Now}
}

type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	// required only for accounts with TOTP enabled
	TOTPCode string `json:"totp_code"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": err.Error()})
		return
	}

	e, err := h.Dir.FindByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		log.Printf("login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !utils.CheckPassword(e.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if e.Status != models.StatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not active"})
		return
	}

	if e.TOTPEnabled {
		code := strings.TrimSpace(req.TOTPCode)
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "totp required"})
			return
		}
		if !utils.VerifyTOTP(code, e.TOTPSecret, h.Now()) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp"})
			return
		}
	}

	signed, err := h.signToken(e)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"token":  signed,
		"employee": gin.H{
			"id":        e.ID,
			"role":      e.Role,
			"full_name": e.FullName,
			"email":     e.Email,
		},
	})
}

func (h *AuthHandler) signToken(e *models.Employee) (string, error) {
	now := h.Now()
	claims := middleware.Claims{
		EmployeeID: e.ID,
		Role:       string(e.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.JWTSecret))
}
