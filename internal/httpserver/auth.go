package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/service/auth"
)

type tokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *handlers) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, auth.ErrInvalidCredentials)
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *handlers) currentUser(c *gin.Context) {
	customer := customerFromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"username": customer.Email, "customer": customer})
}
