package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"report2earn/internal/auth"
	"report2earn/internal/config"
	"report2earn/internal/database"
	"report2earn/internal/handlers"
	"report2earn/internal/jobs"
	"report2earn/internal/ledger"
	"report2earn/internal/repository"
	"report2earn/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Ledger client
	ledgerClient, err := ledger.NewClient(cfg.Algorand.Network, cfg.Algorand.AlgodURL, cfg.Algorand.AlgodToken)
	if err != nil {
		log.Fatalf("Failed to create ledger client: %v", err)
	}

	// Escrow signing key. Mainnet without a configured key fails in
	// config.Load; on test networks a throwaway key is generated so the
	// flow stays exercisable.
	escrowSigner := loadSigner(cfg.Algorand.EscrowMnemonic, "escrow")

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Verification oracle client
	oracle := services.NewOracleClient(cfg.Oracle.Endpoint, cfg.Oracle.Timeout)

	// Initialize services
	walletService := services.NewWalletService(repo, ledgerClient, cfg.Algorand.AppID, cfg.Algorand.WaitRounds)
	settlementService := services.NewSettlementService(repo, ledgerClient, oracle, escrowSigner, services.SettlementConfig{
		DepositMicroAlgos: ledger.AlgosToMicroAlgos(decimal.NewFromFloat(cfg.Reward.DepositAlgos)),
		RewardMicroAlgos:  ledger.AlgosToMicroAlgos(decimal.NewFromFloat(cfg.Reward.RewardAlgos)),
		Policy:            services.RewardPolicy(cfg.Reward.Policy),
		AppID:             cfg.Algorand.AppID,
		RequireOptIn:      cfg.Algorand.RequireOptIn,
		WaitRounds:        cfg.Algorand.WaitRounds,
	})

	governanceSigner := loadSigner(cfg.Governance.CreatorMnemonic, "governance operator")
	governanceService := services.NewGovernanceService(ledgerClient, governanceSigner, services.GovernanceConfig{
		AppID:              cfg.Governance.AppID,
		VotingPeriodRounds: cfg.Governance.VotingPeriodRounds,
		MinDepositMicro:    ledger.AlgosToMicroAlgos(decimal.NewFromFloat(cfg.Governance.MinDepositAlgos)),
		QuorumBasisPoints:  cfg.Governance.QuorumBasisPoints,
		WaitRounds:         cfg.Algorand.WaitRounds,
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(walletService)
	walletHandler := handlers.NewWalletHandler(walletService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	governanceHandler := handlers.NewGovernanceHandler(governanceService, repo)

	// Start proposal indexer when a DAO application is configured
	if cfg.Governance.AppID != 0 {
		indexerJob := jobs.NewProposalIndexerJob(governanceService, repo)
		indexerJob.Start(cfg.Governance.SyncInterval)
		log.Println("Proposal indexer job started")
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:3001",
		"http://127.0.0.1:3000",
	}
	if cfg.App.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.App.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"network": cfg.Algorand.Network,
			"escrow":  settlementService.EscrowAddress().String(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public governance read routes
	router.GET("/api/governance/proposals", governanceHandler.ListProposals)
	router.GET("/api/governance/proposals/:id", governanceHandler.GetProposal)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Wallet endpoints
		api.POST("/wallet/refresh", walletHandler.RefreshBalance)
		api.GET("/wallet/opt-in", walletHandler.GetOptInStatus)
		api.POST("/wallet/opt-in/build", walletHandler.BuildOptIn)
		api.POST("/wallet/opt-in/submit", walletHandler.SubmitOptIn)

		// Settlement endpoints
		api.POST("/settlement/sessions", settlementHandler.CreateSession)
		api.GET("/settlement/sessions", settlementHandler.ListSessions)
		api.GET("/settlement/sessions/:id", settlementHandler.GetSession)
		api.POST("/settlement/sessions/:id/deposit", settlementHandler.SubmitDeposit)
		api.POST("/settlement/sessions/:id/reset", settlementHandler.ResetSession)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// loadSigner restores a signing key from a mnemonic, or generates a
// throwaway one for test networks when none is configured.
func loadSigner(mnemonic, role string) *ledger.LocalSigner {
	if mnemonic != "" {
		signer, err := ledger.NewLocalSignerFromMnemonic(mnemonic)
		if err != nil {
			log.Fatalf("Failed to load %s key: %v", role, err)
		}
		log.Printf("%s key loaded: %s", role, signer.Address())
		return signer
	}

	signer := ledger.GenerateLocalSigner()
	log.Printf("Warning: no %s mnemonic configured, generated throwaway key %s", role, signer.Address())
	return signer
}
