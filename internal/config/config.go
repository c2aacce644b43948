package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// WalletPolicy holds the monetary knobs injected into the ledger engine.
// Rates are percentages, e.g. FeeRate 1 means a 1% transfer fee.
type WalletPolicy struct {
	InitialBalance decimal.Decimal
	MinDeposit     decimal.Decimal
	MinWithdraw    decimal.Decimal
	FeeRate        decimal.Decimal
	CommissionRate decimal.Decimal
	// PhonePrefix is the country calling prefix used to normalize
	// recipient phone lookups. Empty disables normalization.
	PhonePrefix string
}

// Config holds all configuration for the wallet backend.
type Config struct {
	Env        string
	ServerPort int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string
	NatsURL   string

	JWTSecret     string
	JWTExpiry     time.Duration
	RefreshExpiry time.Duration
	BcryptCost    int

	AdminEmail    string
	AdminPassword string
	FrontendURL   string

	Wallet WalletPolicy
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file is honored in development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	serverPort, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	jwtExpiryMinutes, err := getEnvInt("JWT_EXPIRY_MINUTES", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_MINUTES: %w", err)
	}
	refreshExpiryHours, err := getEnvInt("REFRESH_EXPIRY_HOURS", 7*24)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_EXPIRY_HOURS: %w", err)
	}
	bcryptCost, err := getEnvInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	policy, err := loadWalletPolicy()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:        getEnv("APP_ENV", "development"),
		ServerPort: serverPort,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "wallet"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		NatsURL:   getEnv("NATS_URL", "nats://localhost:4222"),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiry:     time.Duration(jwtExpiryMinutes) * time.Minute,
		RefreshExpiry: time.Duration(refreshExpiryHours) * time.Hour,
		BcryptCost:    bcryptCost,

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@wallet.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "change-me"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),

		Wallet: policy,
	}

	return cfg, nil
}

func loadWalletPolicy() (WalletPolicy, error) {
	var p WalletPolicy
	var err error

	if p.InitialBalance, err = getEnvDecimal("WALLET_INITIAL_BALANCE", "50"); err != nil {
		return p, fmt.Errorf("invalid WALLET_INITIAL_BALANCE: %w", err)
	}
	if p.MinDeposit, err = getEnvDecimal("WALLET_MIN_DEPOSIT", "200"); err != nil {
		return p, fmt.Errorf("invalid WALLET_MIN_DEPOSIT: %w", err)
	}
	if p.MinWithdraw, err = getEnvDecimal("WALLET_MIN_WITHDRAW", "100"); err != nil {
		return p, fmt.Errorf("invalid WALLET_MIN_WITHDRAW: %w", err)
	}
	if p.FeeRate, err = getEnvDecimal("WALLET_FEE_RATE", "1"); err != nil {
		return p, fmt.Errorf("invalid WALLET_FEE_RATE: %w", err)
	}
	if p.CommissionRate, err = getEnvDecimal("WALLET_COMMISSION_RATE", "2"); err != nil {
		return p, fmt.Errorf("invalid WALLET_COMMISSION_RATE: %w", err)
	}
	p.PhonePrefix = getEnv("WALLET_PHONE_PREFIX", "+88")

	return p, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(val)
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		val = fallback
	}
	return decimal.NewFromString(val)
}
