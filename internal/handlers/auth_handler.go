package handlers

import (
	"log"
	"net/http"

	"report2earn/internal/auth"
	"report2earn/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	walletService *services.WalletService
}

func NewAuthHandler(walletService *services.WalletService) *AuthHandler {
	return &AuthHandler{walletService: walletService}
}

// WalletLogin registers/loads the user for a wallet address and issues a JWT
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.walletService.ConnectWallet(c.Request.Context(), req.WalletAddress)
	if err != nil {
		log.Printf("ERROR: WalletLogin - %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.WalletAddress)
	if err != nil {
		log.Printf("ERROR: WalletLogin - token generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"data":    user,
	})
}

// GetMe returns the authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.walletService.RefreshBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
