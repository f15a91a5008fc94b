package handlers

import (
	"encoding/base64"
	"net/http"

	"report2earn/internal/auth"
	"report2earn/internal/services"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// RefreshBalance re-reads the ledger balance for the authenticated wallet
func (h *WalletHandler) RefreshBalance(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.walletService.RefreshBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetOptInStatus reports whether the wallet has opted in to the
// verification application
func (h *WalletHandler) GetOptInStatus(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	optedIn, err := h.walletService.OptInStatus(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"opted_in": optedIn,
	})
}

// BuildOptIn returns the unsigned opt-in transaction for the wallet to sign
func (h *WalletHandler) BuildOptIn(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	unsigned, err := h.walletService.BuildOptInTransaction(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"unsigned_transaction": unsigned,
	})
}

// SubmitOptIn broadcasts the wallet-signed opt-in transaction
func (h *WalletHandler) SubmitOptIn(c *gin.Context) {
	var req struct {
		SignedTransaction string `json:"signed_transaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blob, err := base64.StdEncoding.DecodeString(req.SignedTransaction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signed_transaction must be base64"})
		return
	}

	txID, err := h.walletService.SubmitSignedOptIn(c.Request.Context(), blob)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tx_id":   txID,
	})
}
