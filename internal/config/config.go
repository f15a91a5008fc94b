package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Algorand   AlgorandConfig
	Oracle     OracleConfig
	Reward     RewardConfig
	Governance GovernanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret   string
	FrontendURL string
}

// AlgorandConfig holds ledger connection and escrow settings
type AlgorandConfig struct {
	Network        string // mainnet, testnet, localnet
	AlgodURL       string
	AlgodToken     string
	EscrowMnemonic string
	AppID          uint64 // verification application, 0 disables the contract-gated flow
	RequireOptIn   bool
	WaitRounds     uint64
}

// OracleConfig holds the AI verification service settings
type OracleConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// RewardConfig holds the settlement amounts and payout policy
type RewardConfig struct {
	Policy       string // always, fake_only, dynamic
	DepositAlgos float64
	RewardAlgos  float64
}

// GovernanceConfig holds the DAO operator settings
type GovernanceConfig struct {
	AppID              uint64
	CreatorMnemonic    string
	VotingPeriodRounds uint64
	MinDepositAlgos    float64
	QuorumBasisPoints  uint64
	SyncInterval       time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "report2earn"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		Algorand: AlgorandConfig{
			Network:        getEnv("ALGORAND_NETWORK", "testnet"),
			AlgodURL:       getEnv("ALGOD_URL", ""),
			AlgodToken:     getEnv("ALGOD_TOKEN", ""),
			EscrowMnemonic: getEnv("ESCROW_MNEMONIC", ""),
			AppID:          getEnvUint("VERIFICATION_APP_ID", 0),
			RequireOptIn:   getEnvBool("REQUIRE_APP_OPT_IN", false),
			WaitRounds:     getEnvUint("CONFIRMATION_WAIT_ROUNDS", 4),
		},
		Oracle: OracleConfig{
			Endpoint: getEnv("ORACLE_ENDPOINT", "http://localhost:8000/verify"),
			Timeout:  getEnvDuration("ORACLE_TIMEOUT", 120*time.Second),
		},
		Reward: RewardConfig{
			Policy:       getEnv("REWARD_POLICY", "always"),
			DepositAlgos: getEnvFloat("DEPOSIT_ALGOS", 1),
			RewardAlgos:  getEnvFloat("REWARD_ALGOS", 2),
		},
		Governance: GovernanceConfig{
			AppID:              getEnvUint("DAO_APP_ID", 0),
			CreatorMnemonic:    getEnv("DAO_CREATOR_MNEMONIC", ""),
			VotingPeriodRounds: getEnvUint("DAO_VOTING_PERIOD_ROUNDS", 10_000),
			MinDepositAlgos:    getEnvFloat("DAO_MIN_DEPOSIT_ALGOS", 10),
			QuorumBasisPoints:  getEnvUint("DAO_QUORUM_BPS", 5_000),
			SyncInterval:       getEnvDuration("DAO_SYNC_INTERVAL", 2*time.Minute),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch config.Reward.Policy {
	case "always", "fake_only", "dynamic":
	default:
		return nil, fmt.Errorf("REWARD_POLICY must be one of always, fake_only, dynamic (got %q)", config.Reward.Policy)
	}

	// A generated fallback escrow key is tolerable on test networks only.
	// Mainnet without an explicit escrow key must fail closed.
	if config.Algorand.Network == "mainnet" && config.Algorand.EscrowMnemonic == "" {
		return nil, fmt.Errorf("ESCROW_MNEMONIC is required on mainnet")
	}

	if config.Algorand.RequireOptIn && config.Algorand.AppID == 0 {
		return nil, fmt.Errorf("VERIFICATION_APP_ID is required when REQUIRE_APP_OPT_IN is set")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
