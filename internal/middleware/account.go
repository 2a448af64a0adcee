package middleware

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/repository"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/response"
)

// ContextAccountKey is the gin context key storing the re-fetched account.
const ContextAccountKey = "currentAccount"

// RequireAccount loads the live account behind the token claims and gates on
// its current status. Claims are a snapshot; deactivating an account takes
// effect on the next request, not at token expiry.
func RequireAccount(users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account"))
			}
			c.Abort()
			return
		}

		if !user.Active() {
			response.Error(c, appErrors.Clone(appErrors.ErrInactiveAccount, "account is not active"))
			c.Abort()
			return
		}

		c.Set(ContextAccountKey, user)
		c.Next()
	}
}

// MinRole gates on the administrative hierarchy: any role at or above the
// given tier passes. Roles outside the ladder never pass.
func MinRole(min models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountValue, exists := c.Get(ContextAccountKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		user := accountValue.(*models.User)

		if !user.Role.AtLeast(min) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
