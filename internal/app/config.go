package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/utils"
)

// Config is the service configuration. Values come from an optional
// YAML file (CONFIG_PATH) with environment variables taking precedence,
// so deployments can ship a base file and override per environment.
type Config struct {
	Environment        string        `yaml:"environment"`
	HTTPAddr           string        `yaml:"http_addr"`
	AllowOrigins       []string      `yaml:"allow_origins"`
	JWTSecretKey       string        `yaml:"jwt_secret_key"`
	OperatorPassword   string        `yaml:"operator_password_hash"`
	TokenTTL           time.Duration `yaml:"-"`
	TokenTTLSeconds    int           `yaml:"token_ttl_seconds"`
	FeeRateBasisPoints int64         `yaml:"fee_rate_basis_points"`
	FeeRecipient       string        `yaml:"fee_recipient"`
	TreasuryURL        string        `yaml:"treasury_url"`
	TreasuryAPIKey     string        `yaml:"treasury_api_key"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Environment:        "development",
		HTTPAddr:           ":8080",
		TokenTTLSeconds:    3600,
		FeeRateBasisPoints: 250,
		FeeRecipient:       "platform-treasury",
	}

	path := utils.GetEnv("CONFIG_PATH", "", log)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Config file loaded", "path", path)
	}

	cfg.Environment = utils.GetEnv("ENVIRONMENT", cfg.Environment, log)
	cfg.HTTPAddr = utils.GetEnv("HTTP_ADDR", cfg.HTTPAddr, log)
	cfg.JWTSecretKey = utils.GetEnv("JWT_SECRET_KEY", cfg.JWTSecretKey, nil)
	cfg.OperatorPassword = utils.GetEnv("OPERATOR_PASSWORD_HASH", cfg.OperatorPassword, nil)
	cfg.TokenTTLSeconds = utils.GetEnvAsInt("TOKEN_TTL_SECONDS", cfg.TokenTTLSeconds, log)
	cfg.FeeRateBasisPoints = utils.GetEnvAsInt64("FEE_RATE_BASIS_POINTS", cfg.FeeRateBasisPoints, log)
	cfg.FeeRecipient = utils.GetEnv("FEE_RECIPIENT", cfg.FeeRecipient, log)
	cfg.TreasuryURL = utils.GetEnv("TREASURY_URL", cfg.TreasuryURL, log)
	cfg.TreasuryAPIKey = utils.GetEnv("TREASURY_API_KEY", cfg.TreasuryAPIKey, nil)
	cfg.TokenTTL = time.Duration(cfg.TokenTTLSeconds) * time.Second

	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "defaultsecret"
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg, nil
}
