package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tracker-api/internal/store"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey string

const userIDKey ctxKey = "userID"

const (
	providerClerk = "clerk"
	providerDev   = "dev"
)

// UserStore is the part of the store that provisions local users.
type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	GetUserByProvider(ctx context.Context, provider, subject string) (*store.User, error)
}

// ClerkSession verifies the bearer token and puts the session claims on the
// request context. Requests without a token pass through without claims.
func ClerkSession() gin.HandlerFunc {
	verify := clerkhttp.WithHeaderAuthorization()
	return func(c *gin.Context) {
		passed := false
		verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func RequireAuth(s UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := clerk.SessionClaimsFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    ErrorCodeUnauthorized,
					"message": "missing or invalid authentication",
				},
			})
			return
		}

		localUser, err := getOrCreateUser(c.Request.Context(), s, providerClerk, claims.Subject, clerkEmail)
		if err != nil {
			log.Printf("error provisioning user %s: %v", claims.Subject, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    ErrorCodeInternal,
					"message": "failed to provision user",
				},
			})
			return
		}

		SetUserID(c, localUser.ID)
		c.Next()
	}
}

// RequireDevUser authenticates every request as one local user. It is only
// wired when no Clerk key is configured.
func RequireDevUser(s UserStore, email string) gin.HandlerFunc {
	devEmail := func(context.Context, string) (string, error) { return email, nil }
	return func(c *gin.Context) {
		localUser, err := getOrCreateUser(c.Request.Context(), s, providerDev, email, devEmail)
		if err != nil {
			log.Printf("error provisioning dev user %s: %v", email, err)
			AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to provision user")
			return
		}
		SetUserID(c, localUser.ID)
		c.Next()
	}
}

func SetUserID(c *gin.Context, userID string) {
	c.Set(string(userIDKey), userID)
}

func GetUserID(c *gin.Context) (string, bool) {
	val, ok := c.Get(string(userIDKey))
	if !ok {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}

func clerkEmail(ctx context.Context, clerkUserID string) (string, error) {
	clerkUser, err := user.Get(ctx, clerkUserID)
	if err != nil {
		return "", fmt.Errorf("fetch clerk user: %w", err)
	}
	if len(clerkUser.EmailAddresses) == 0 || clerkUser.EmailAddresses[0].EmailAddress == "" {
		return "", fmt.Errorf("clerk user %s has no email address", clerkUserID)
	}
	return clerkUser.EmailAddresses[0].EmailAddress, nil
}

func getOrCreateUser(ctx context.Context, s UserStore, provider, subject string, lookupEmail func(context.Context, string) (string, error)) (*store.User, error) {
	u, err := s.GetUserByProvider(ctx, provider, subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by provider: %w", err)
	}

	email, err := lookupEmail(ctx, subject)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newUser := &store.User{
		ID:              uuid.NewString(),
		Email:           email,
		AuthProvider:    &provider,
		ProviderSubject: &subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreateUser(ctx, newUser); err != nil {
		// a concurrent first request may have provisioned the same subject
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.GetUserByProvider(ctx, provider, subject)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Printf("provisioned new user: id=%s email=%s provider=%s", newUser.ID, newUser.Email, provider)
	return newUser, nil
}
