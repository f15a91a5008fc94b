package handlers

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"

	"report2earn/internal/auth"
	"report2earn/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
}

func NewSettlementHandler(settlementService *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// CreateSession starts a verification cycle: preconditions are checked, the
// deposit transaction is built and returned unsigned for the wallet to sign
func (h *SettlementHandler) CreateSession(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ContentURL string `json:"content_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, _, err := h.settlementService.Begin(c.Request.Context(), req.ContentURL, address)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrSessionBusy) {
			status = http.StatusConflict
		}
		log.Printf("ERROR: CreateSession - %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":              true,
		"data":                 session,
		"unsigned_transaction": session.UnsignedDeposit,
	})
}

// SubmitDeposit resumes the session with the wallet-signed deposit and
// drives it to completion
func (h *SettlementHandler) SubmitDeposit(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

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

	session, err := h.settlementService.SubmitDeposit(c.Request.Context(), sessionID, blob)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrWrongSessionState):
			status = http.StatusConflict
		case errors.Is(err, services.ErrInsufficientEscrow):
			status = http.StatusServiceUnavailable
		}
		log.Printf("ERROR: SubmitDeposit - session %s: %v", sessionID, err)
		c.JSON(status, gin.H{
			"error": err.Error(),
			"data":  session, // partial progress stays visible
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
	})
}

// GetSession returns current session state
func (h *SettlementHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	session, err := h.settlementService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
	})
}

// ResetSession returns the session to idle
func (h *SettlementHandler) ResetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	session, err := h.settlementService.Reset(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
	})
}

// ListSessions returns the authenticated wallet's recent sessions
func (h *SettlementHandler) ListSessions(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sessions, err := h.settlementService.ListSessions(c.Request.Context(), address, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sessions,
	})
}
