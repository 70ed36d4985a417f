package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxEmployeeID = "employee_id"
	CtxRole       = "role"
)

type Claims struct {
	EmployeeID uint   `json:"employee_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// ManagerChecker decides whether an employee may issue manual codes.
type ManagerChecker interface {
	IsManager(ctx context.Context, employeeID uint) (bool, error)
}

func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tok := strings.TrimPrefix(h, "Bearer ")

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid || claims.EmployeeID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxEmployeeID, claims.EmployeeID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireManager admits top administrators and employees with direct
// reports. It must run after AuthRequired.
func RequireManager(checker ManagerChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetUint(CtxEmployeeID)
		ok, err := checker.IsManager(c.Request.Context(), id)
		if err != nil {
			log.Printf("manager check for employee %d failed: %v", id, err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "manager only"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "manager only"})
			return
		}
		c.Next()
	}
}
