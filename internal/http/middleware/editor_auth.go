package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

const editorIDKey = "editor_id"

// EditorAuth guards mutating routes with an HS256 bearer token. Token
// issuance lives outside this service; we only verify and extract the
// editor identity for created_by attribution.
type EditorAuth struct {
	log    *logger.Logger
	secret []byte
}

func NewEditorAuth(log *logger.Logger, secret string) *EditorAuth {
	return &EditorAuth{
		log:    log.With("middleware", "EditorAuth"),
		secret: []byte(secret),
	}
}

func (m *EditorAuth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid token", "code": "unauthorized"},
			})
			return
		}

		if id, err := uuid.Parse(claims.Subject); err == nil {
			c.Set(editorIDKey, id)
		}
		c.Next()
	}
}

// EditorID returns the authenticated editor's id, if the token carried one.
func EditorID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(editorIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

func extractBearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
