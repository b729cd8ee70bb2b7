package middleware

import (
	"net/http"
	"strings"

	"transitdesk/internal/apierror"
	"transitdesk/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims the external identity service embeds in
// every access token: who the operator is and which tenant they act for.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	CompanyID   string `json:"company_id"`
	AgencyID    string `json:"agency_id"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// Scope parses the tenant scope out of the token claims. Malformed IDs abort
// with 401 — a token without a well-formed tenant scope is unusable.
func Scope(c *gin.Context) (model.TenantScope, model.Actor, bool) {
	claims := GetClaims(c)
	companyID, err1 := uuid.Parse(claims.CompanyID)
	agencyID, err2 := uuid.Parse(claims.AgencyID)
	userID, err3 := uuid.Parse(claims.UserID)
	if err1 != nil || err2 != nil || err3 != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("malformed tenant claims"))
		return model.TenantScope{}, model.Actor{}, false
	}
	scope := model.TenantScope{CompanyID: companyID, AgencyID: agencyID}
	actor := model.Actor{ID: userID, DisplayName: claims.DisplayName, Role: claims.Role}
	return scope, actor, true
}
