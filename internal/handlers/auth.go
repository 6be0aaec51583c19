package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LoneMagma/pacify-site/internal/auth"
	"github.com/LoneMagma/pacify-site/internal/middleware"
	"github.com/LoneMagma/pacify-site/internal/store"
)

// LoginRequest is the payload for admin authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginHandler verifies admin credentials and issues a session token.
// Unknown username and wrong password produce the same 401.
func LoginHandler(s *store.EventStore, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := s.GetAdminUser(c.Request.Context(), req.Username)
		if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := tokens.Issue(user.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// VerifyHandler confirms the bearer token presented to the auth middleware
// is still valid and returns its subject.
func VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"valid":    true,
			"username": c.GetString(middleware.UsernameKey),
		})
	}
}
