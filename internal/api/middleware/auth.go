// internal/api/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

const identityKey = "identity"

// ErrAccountDisabled is returned by ActiveUser for a disabled account.
var ErrAccountDisabled = errors.New("account is disabled")

// UserLookup resolves the account behind a token.
type UserLookup interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ActiveUser loads the account a token was issued for. A deleted account
// returns inspection.ErrNotFound and a disabled one ErrAccountDisabled.
func ActiveUser(ctx context.Context, users UserLookup, id primitive.ObjectID) (*models.User, error) {
	user, err := users.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusDisabled {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// Authenticate validates the bearer token and stores the caller's
// inspection.Identity on the gin context. When users is set the account is
// read on every request, so disabling it revokes outstanding tokens and the
// stored role takes precedence over the one in the token.
func Authenticate(tokens *auth.Tokens, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		who := inspection.Identity{UserID: userID, Role: claims.Role}
		if users != nil {
			user, err := ActiveUser(c.Request.Context(), users, userID)
			switch {
			case errors.Is(err, inspection.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			case errors.Is(err, ErrAccountDisabled):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
				return
			case err != nil:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			who.Role = user.Role
		}

		c.Set(identityKey, who)
		c.Next()
	}
}

// Authorize rejects callers whose role is not in allowedRoles. It must run
// after Authenticate.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User identity not found in context"})
			return
		}

		for _, role := range allowedRoles {
			if role == who.Role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}

// IdentityFrom returns the identity set by Authenticate. Public routes get
// inspection.Anonymous and false.
func IdentityFrom(c *gin.Context) (inspection.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return inspection.Anonymous, false
	}
	who, ok := v.(inspection.Identity)
	if !ok {
		return inspection.Anonymous, false
	}
	return who, true
}

// SetIdentity is used by tests and by routes that resolve the caller some
// other way.
func SetIdentity(c *gin.Context, who inspection.Identity) {
	c.Set(identityKey, who)
}
