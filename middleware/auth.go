package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"pet-dashboard/config"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates bearer tokens and extracts the user identity.
// Owner-scoped routes behind it abort without any state change when no
// authenticated identity is present.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			log.Printf("WARNING: Request without bearer token from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to manage your pet reports"})
			c.Abort()
			return
		}

		userID, err := validateTokenWithAuthService(token, cfg.AuthServiceURL)
		if err != nil {
			log.Printf("WARNING: Token validation failed from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to manage your pet reports"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("bearer_token", token)
		c.Next()
	}
}

// extractToken pulls the token out of a "Bearer ..." Authorization header.
func extractToken(authHeader string) string {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// validateTokenWithAuthService validates a token with the auth service
func validateTokenWithAuthService(token, authServiceURL string) (string, error) {
	requestBody := map[string]string{
		"token": token,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/api/v3/validate-token", authServiceURL)
	req, err := http.NewRequest("POST", url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var response struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"user_id"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode auth service response: %w", err)
	}

	if !response.Valid {
		return "", fmt.Errorf("token validation failed: %s", response.Error)
	}

	return response.UserID, nil
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
