package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Discovery
	StartURL           string
	MaxPages           int
	EmptyPageThreshold int // consecutive empty pages before stopping

	// Classification
	FilterEnabled  bool // when false every candidate passes the relevance gate
	FuzzyThreshold int  // partial-ratio score treated as a keyword hit

	// Remote dataset (Google Sheets)
	SpreadsheetID   string
	WorksheetName   string
	CredentialsFile string
	MaxBatchOps     int // range writes per batch call
	WriteDelayMs    int // pause between write chunks

	// Local persistence
	CSVPattern  string // {date} is replaced with YYYYMMDD
	StateFile   string
	SnapshotDir string
	LogFile     string

	// Postgres mirror (optional)
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Fetching
	MaxRetries     int
	PageTimeoutSec int
	DetailDelayMin time.Duration
	DetailDelayMax time.Duration
	ChromeBin      string
	Timezone       string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StartURL:           getEnv("START_URL", "https://www.olx.uz/nedvizhimost/posutochno_pochasovo/dachi/tashkent/?currency=UZS"),
		MaxPages:           getEnvInt("MAX_PAGES", 20),
		EmptyPageThreshold: getEnvInt("STOP_AFTER_EMPTY_PAGES", 2),

		FilterEnabled:  getEnvBool("RELEVANCE_FILTER", true),
		FuzzyThreshold: getEnvInt("FUZZY_THRESHOLD", 80),

		SpreadsheetID:   getEnv("SPREADSHEET_ID", ""),
		WorksheetName:   getEnv("WORKSHEET_NAME", "raw_listings"),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "service_account.json"),
		MaxBatchOps:     getEnvInt("MAX_BATCH_OPS", 50),
		WriteDelayMs:    getEnvInt("WRITE_DELAY_MS", 1000),

		CSVPattern:  getEnv("CSV_PATTERN", "olx_dacha_tashkent_raw_{date}.csv"),
		StateFile:   getEnv("STATE_FILE", "state.json"),
		SnapshotDir: getEnv("SNAPSHOT_DIR", "snapshots"),
		LogFile:     getEnv("LOG_FILE", "scrape_olx_dacha_tashkent.log"),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "dacha_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		PageTimeoutSec: getEnvInt("PAGE_TIMEOUT_SEC", 60),
		DetailDelayMin: time.Duration(getEnvInt("DETAIL_DELAY_MIN_MS", 2000)) * time.Millisecond,
		DetailDelayMax: time.Duration(getEnvInt("DETAIL_DELAY_MAX_MS", 5000)) * time.Millisecond,
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Timezone:       getEnv("LOCAL_TIMEZONE", "Asia/Tashkent"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// CSVPath expands the {date} placeholder in the export file pattern.
func (c *Config) CSVPath(now time.Time) string {
	return strings.ReplaceAll(c.CSVPattern, "{date}", now.Format("20060102"))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
