package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenAQAPIKey authenticates site registry lookups. The archive bucket
	// and the other upstreams need no key.
	OpenAQAPIKey string

	// HTTPTimeout applies to every outbound request through the shared client.
	HTTPTimeout time.Duration

	// MarginKm is the default bounding box expansion.
	MarginKm float64

	// FetchConcurrency bounds parallel site/day archive fetches. 1 means
	// strictly sequential.
	FetchConcurrency int

	// Locations and Parameters drive the periodic scheduler; empty Locations
	// disables it.
	Locations  []string
	Parameters []string

	// AnalysisInterval controls how often the scheduler re-runs.
	AnalysisInterval time.Duration

	// AnalysisWindowDays is the trailing window each scheduled run covers.
	AnalysisWindowDays int

	// In-memory result store retention.
	StoreMaxHistory int           // max number of results per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of results (0 = unlimited)

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAQAPIKey = os.Getenv("OPENAQ_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.MarginKm = getenvFloat("BBOX_MARGIN_KM", 15)
	if cfg.MarginKm < 0 {
		return nil, fmt.Errorf("BBOX_MARGIN_KM must not be negative")
	}

	cfg.FetchConcurrency = getenvInt("FETCH_CONCURRENCY", 4)

	// Scheduler interval: default 6 hours; the archive is day-partitioned so
	// re-running more often just re-reads the same objects.
	intervalStr := getenvDefault("ANALYSIS_INTERVAL", "6h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_INTERVAL: %w", err)
	}
	cfg.AnalysisInterval = interval

	cfg.AnalysisWindowDays = getenvInt("ANALYSIS_WINDOW_DAYS", 7)

	cfg.Locations = splitList(os.Getenv("LOCATIONS"))
	cfg.Parameters = splitList(os.Getenv("AQ_PARAMETERS"))

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 8)

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "48h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
