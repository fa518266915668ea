// Package config loads the server's configuration via viper, following the
// teacher's load-with-defaults-then-override pattern, extended with the
// sections a redaction server needs: attachment storage, OCR, the local LLM
// runtime, image-similarity blocklisting, log persistence and mTLS.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Patterns   PatternsConfig   `mapstructure:"patterns"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Attachment AttachmentConfig `mapstructure:"attachment"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Storage    StorageConfig    `mapstructure:"storage"`
	TLS        TLSConfig        `mapstructure:"tls"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DetectionConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxPromptLength     int     `mapstructure:"max_prompt_length"`
	WorkerPoolSize      int     `mapstructure:"worker_pool_size"`
}

type PatternsConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	CacheSize      int           `mapstructure:"cache_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AttachmentConfig governs where inbound base64 attachments land on disk,
// grounded on original_source/services/attachment.py's DOWNLOADS_ROOT.
type AttachmentConfig struct {
	DownloadsRoot string `mapstructure:"downloads_root"`
}

// OCRConfig toggles the optional tesseract-backed OCR pass, grounded on
// original_source/services/ocr.py.
type OCRConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Lang    string `mapstructure:"lang"`
	PSM     string `mapstructure:"psm"`
	OEM     string `mapstructure:"oem"`
}

// LLMConfig points at the local causal-LM subprocess used for the second
// detection pass, grounded on
// original_source/services/offline_sensitive_detector_min.py.
type LLMConfig struct {
	UseAIDetector bool          `mapstructure:"use_ai_detector"`
	ScriptPath    string        `mapstructure:"script_path"`
	ModelDir      string        `mapstructure:"model_dir"`
	MaxNewTokens  int           `mapstructure:"max_new_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SimilarityConfig names the folder of known-sensitive reference images used
// by the image-similarity override, grounded on
// original_source/services/similarity.py.
type SimilarityConfig struct {
	BlocklistFolder string  `mapstructure:"blocklist_folder"`
	Threshold       float64 `mapstructure:"threshold"`
}

// StorageConfig is the SQLite DSN shared by the Log Repository and the
// Settings Store.
type StorageConfig struct {
	SQLiteDSN string `mapstructure:"sqlite_dsn"`
}

// TLSConfig is the optional mTLS toggle for the ingestion endpoint, grounded
// on original_source/server/config.py's
// USE_MTLS/TLS_CA_FILE/TLS_CERT_FILE/TLS_KEY_FILE.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CAFile   string `mapstructure:"ca_file"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// AdminConfig gates the diagnostics endpoints (/v1/diagnose-llm,
// /v1/circuit-breakers), grounded on
// original_source/routers/settings_api.py's require_admin_key.
type AdminConfig struct {
	Key string `mapstructure:"key"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("detection.confidence_threshold", 0.5) // Lowered from 0.7 to 0.5
	viper.SetDefault("detection.max_prompt_length", 10000)
	viper.SetDefault("detection.worker_pool_size", 10)
	viper.SetDefault("patterns.update_interval", "1h")
	viper.SetDefault("patterns.cache_size", 1000)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("attachment.downloads_root", "./data/attachments")

	viper.SetDefault("ocr.enabled", true)
	viper.SetDefault("ocr.lang", "kor+eng")
	viper.SetDefault("ocr.psm", "3")
	viper.SetDefault("ocr.oem", "1")

	viper.SetDefault("llm.use_ai_detector", true)
	viper.SetDefault("llm.script_path", "./models/offline_sensitive_detector_min.py")
	viper.SetDefault("llm.model_dir", "./models/weights")
	viper.SetDefault("llm.max_new_tokens", 256)
	viper.SetDefault("llm.timeout", "20s")

	viper.SetDefault("similarity.blocklist_folder", "./data/blocklist")
	viper.SetDefault("similarity.threshold", 0.4)

	viper.SetDefault("storage.sqlite_dsn", "./data/sentinel.db")

	viper.SetDefault("tls.enabled", false)

	viper.SetDefault("admin.key", "")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	// Read config file (optional, will use defaults if not found)
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
