package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Search   SearchConfig
	Ingest   IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr          string
	MaxUploadMB   int64
	BlobDir       string
	UploadTmpDir  string
	ShutdownGrace time.Duration
}

// ExtractConfig holds PDF extraction and OCR configuration
type ExtractConfig struct {
	OCRMyPDF      string // binary name or absolute path; empty disables preprocessing
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	DPI           int
	OCRTimeout    time.Duration
}

// LLMConfig holds model-access configuration
type LLMConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	MaxChars      int
	StructureTemp float32
	SummaryTemp   float32
}

// SearchConfig holds keyword-index configuration
type SearchConfig struct {
	IndexPath    string
	DefaultLimit int
	MaxLimit     int
}

// IngestConfig holds drop-directory watcher configuration
type IngestConfig struct {
	WatchDir    string // empty disables the watcher
	InitialScan bool
	Debounce    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:docintel.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:          getEnv("HTTP_ADDR", ":8080"),
			MaxUploadMB:   int64(getEnvAsInt("MAX_UPLOAD_MB", 50)),
			BlobDir:       getEnv("BLOB_DIR", "./data/blobs"),
			UploadTmpDir:  getEnv("UPLOAD_TMP_DIR", "./data/uploads"),
			ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
		},
		Extract: ExtractConfig{
			OCRMyPDF:      getEnv("OCRMYPDF", "ocrmypdf"),
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "deu+eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			OCRTimeout:    getEnvAsDuration("OCR_TIMEOUT", 5*time.Minute),
		},
		LLM: LLMConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:       getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxChars:      getEnvAsInt("STRUCTURE_MAX_CHARS", 8000),
			StructureTemp: getEnvAsFloat32("STRUCTURE_TEMPERATURE", 0.0),
			SummaryTemp:   getEnvAsFloat32("SUMMARY_TEMPERATURE", 0.3),
		},
		Search: SearchConfig{
			IndexPath:    getEnv("SEARCH_INDEX_PATH", "./data/search.bleve"),
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Ingest: IngestConfig{
			WatchDir:    getEnv("WATCH_DIR", ""),
			InitialScan: getEnv("WATCH_INITIAL_SCAN", "true") == "true",
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
	}
}

// Validate validates the loaded configuration. A missing API key is allowed:
// the pipeline degrades to skipped structuring rather than refusing to start.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Search.IndexPath == "" {
		return NewAppError("CONFIG_ERROR", "SEARCH_INDEX_PATH is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
