package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed cameras.yaml
var camerasYAML []byte

type Config struct {
	Extractor   ExtractorConfig
	Gallery     GalleryConfig
	Ledger      LedgerConfig
	Database    DatabaseConfig
	MariaDB     MariaDBConfig
	Recognition RecognitionConfig
	Cameras     CamerasConfig
}

type ExtractorConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128 (dlib-style descriptors)
}

type GalleryConfig struct {
	Backend string // "files" (default) or "postgres"
	Dir     string // directory of enrolled sample images (files backend)
}

type LedgerConfig struct {
	Backend string // "csv" (default), "postgres" or "mariadb"
	CSVPath string // attendance table location for the csv backend
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // MariaDB DSN (e.g., attendance:attendance@tcp(mariadb:3306)/attendance)
}

type RecognitionConfig struct {
	Threshold float64 // maximum embedding distance for acceptance (default 0.6)
}

type CamerasConfig struct {
	Cameras map[string]CameraCalibration `yaml:"cameras"`
}

type CameraCalibration struct {
	Threshold float64 `yaml:"threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// dataDir resolves the attendance data directory: ATTENDANCE_DATA_DIR when
// set, otherwise "Attendance Data" under the user's home directory.
func dataDir() string {
	if dir := os.Getenv("ATTENDANCE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "Attendance Data"
	}
	return filepath.Join(home, "Attendance Data")
}

func Load() *Config {
	var cameras CamerasConfig
	if err := yaml.Unmarshal(camerasYAML, &cameras); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded cameras.yaml: " + err.Error())
	}

	dir := dataDir()
	galleryDir := os.Getenv("GALLERY_DIR")
	if galleryDir == "" {
		galleryDir = filepath.Join(dir, "faces")
	}
	csvPath := os.Getenv("ATTENDANCE_CSV_PATH")
	if csvPath == "" {
		csvPath = filepath.Join(dir, "attendance.csv")
	}
	ledgerBackend := os.Getenv("LEDGER_BACKEND")
	if ledgerBackend == "" {
		ledgerBackend = "csv"
	}
	galleryBackend := os.Getenv("GALLERY_BACKEND")
	if galleryBackend == "" {
		galleryBackend = "files"
	}
	extractorURL := os.Getenv("EXTRACTOR_URL")
	if extractorURL == "" {
		extractorURL = "http://localhost:8000"
	}

	return &Config{
		Extractor: ExtractorConfig{
			URL: extractorURL,
			Dim: envInt("EXTRACTOR_DIM", 128),
		},
		Gallery: GalleryConfig{
			Backend: galleryBackend,
			Dir:     galleryDir,
		},
		Ledger: LedgerConfig{
			Backend: ledgerBackend,
			CSVPath: csvPath,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("RECOGNITION_THRESHOLD", 0.6),
		},
		Cameras: cameras,
	}
}

// ThresholdFor returns the acceptance threshold for a camera, preferring
// the camera's own calibration, then the calibration default, then the
// configured global threshold.
func (c *Config) ThresholdFor(camera string) float64 {
	if cal, ok := c.Cameras.Cameras[camera]; ok && cal.Threshold > 0 {
		return cal.Threshold
	}
	if cal, ok := c.Cameras.Cameras["default"]; ok && cal.Threshold > 0 {
		return cal.Threshold
	}
	return c.Recognition.Threshold
}
