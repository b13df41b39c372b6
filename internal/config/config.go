package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"funnel-mcp/internal/lag"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	ParamDir            string
	ParamCacheSize      int
	EnableMermaidCharts bool
	Settings            lag.Settings
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	cfg, err := fromEnv(exeDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cfg.LogDir).Msg("Failed to create log directory")
	}
	return cfg, nil
}

func fromEnv(exeDir string) (*AppConfig, error) {
	// Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	d := lag.DefaultSettings()
	s := lag.Settings{
		MinFitConverters:    getEnvFloat("LAG_MIN_FIT_CONVERTERS", d.MinFitConverters),
		MinMeanMedianRatio:  getEnvFloat("LAG_MIN_MEAN_MEDIAN_RATIO", d.MinMeanMedianRatio),
		MaxMeanMedianRatio:  getEnvFloat("LAG_MAX_MEAN_MEDIAN_RATIO", d.MaxMeanMedianRatio),
		DefaultSigma:        getEnvFloat("LAG_DEFAULT_SIGMA", d.DefaultSigma),
		MaxSigma:            getEnvFloat("LAG_MAX_SIGMA", d.MaxSigma),
		DefaultT95Days:      getEnvFloat("LAG_DEFAULT_T95_DAYS", d.DefaultT95Days),
		RecencyHalfLifeDays: getEnvFloat("LAG_RECENCY_HALF_LIFE_DAYS", d.RecencyHalfLifeDays),
		ForecastBlendLambda: getEnvFloat("LAG_FORECAST_BLEND_LAMBDA", d.ForecastBlendLambda),
		AnchorDelayBlendK:   getEnvFloat("LAG_ANCHOR_DELAY_BLEND_K", d.AnchorDelayBlendK),
		ActiveEdgeEpsilon:   getEnvFloat("LAG_ACTIVE_EDGE_EPSILON", d.ActiveEdgeEpsilon),
		Semantics:           lag.CompletenessSemantics(getEnv("LAG_COMPLETENESS_SEMANTICS", string(d.Semantics))),
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine settings: %w", err)
	}

	cacheSize, err := strconv.Atoi(getEnv("PARAM_CACHE_SIZE", "64"))
	if err != nil || cacheSize <= 0 {
		return nil, fmt.Errorf("PARAM_CACHE_SIZE must be a positive integer, got %q", os.Getenv("PARAM_CACHE_SIZE"))
	}

	return &AppConfig{
		DataPath:            dataPath,
		LogDir:              getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs")),
		ParamDir:            getEnv("PARAM_DIR", filepath.Join(dataPath, "params")),
		ParamCacheSize:      cacheSize,
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
		Settings:            s,
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
	}
	return fallback
}
