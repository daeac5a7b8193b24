package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/voterlookup/epic-extractor/internal/util"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"
)

var singleConfig *Config = nil

type Config struct {
	Database   *dbConfig         `json:"database"`
	Service    *svcConfig        `json:"service"`
	Portal     *PortalConfig     `json:"portal"`
	Solver     *SolverConfig     `json:"solver"`
	Extraction *ExtractionConfig `json:"extraction"`
	Archive    *ArchiveConfig    `json:"archive"`
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql" json:"type"`
	Hostname string `envconfig:"DB_HOST" default:"localhost" json:"hostname"`
	Port     string `envconfig:"DB_PORT" default:"5432" json:"port"`
	Name     string `envconfig:"DB_NAME" default:"voters" json:"name"`
	User     string `envconfig:"DB_USER" default:"admin" json:"user"`
	Password string `envconfig:"DB_PASS" default:"adminpass" json:"password"`
}

type svcConfig struct {
	Address        string   `envconfig:"EPIC_EXTRACTOR_ADDRESS" default:":8000" json:"address"`
	MetricsAddress string   `envconfig:"EPIC_EXTRACTOR_METRICS_ADDRESS" default:":8080" json:"metricsAddress"`
	LogLevel       string   `envconfig:"EPIC_EXTRACTOR_LOG_LEVEL" default:"info" json:"logLevel"`
	AllowedOrigins []string `envconfig:"EPIC_EXTRACTOR_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001,http://localhost:3002" json:"allowedOrigins"`
	MaxUploadSize  int64    `envconfig:"EPIC_EXTRACTOR_MAX_UPLOAD_SIZE" default:"10485760" json:"maxUploadSize"`
}

// PortalConfig is handed to the portal client as is. Nothing in the client reads the environment.
type PortalConfig struct {
	CaptchaURL     string        `envconfig:"PORTAL_CAPTCHA_URL" default:"https://gateway-voters.eci.gov.in/api/v1/captcha-service/generateCaptcha" json:"captchaURL"`
	SearchURL      string        `envconfig:"PORTAL_SEARCH_URL" default:"https://gateway-voters.eci.gov.in/api/v1/elastic/search-by-epic-from-national-display" json:"searchURL"`
	ProxyURL       string        `envconfig:"PORTAL_PROXY_URL" default:"" json:"proxyURL"`
	ProxyUsername  string        `envconfig:"PORTAL_PROXY_USERNAME" default:"" json:"proxyUsername"`
	ProxyPassword  string        `envconfig:"PORTAL_PROXY_PASSWORD" default:"" json:"proxyPassword"`
	UserAgent      string        `envconfig:"PORTAL_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36" json:"userAgent"`
	CaptchaTimeout util.Duration `envconfig:"PORTAL_CAPTCHA_TIMEOUT" default:"10s" json:"captchaTimeout"`
	SearchTimeout  util.Duration `envconfig:"PORTAL_SEARCH_TIMEOUT" default:"15s" json:"searchTimeout"`
	HealthTimeout  util.Duration `envconfig:"PORTAL_HEALTH_TIMEOUT" default:"5s" json:"healthTimeout"`
}

type SolverConfig struct {
	// Type is either "command" or "http".
	Type     string        `envconfig:"SOLVER_TYPE" default:"command" json:"type"`
	Command  string        `envconfig:"SOLVER_COMMAND" default:"ddddocr-cli" json:"command"`
	Args     []string      `envconfig:"SOLVER_ARGS" default:"" json:"args"`
	Endpoint string        `envconfig:"SOLVER_ENDPOINT" default:"http://localhost:9898/ocr" json:"endpoint"`
	Timeout  util.Duration `envconfig:"SOLVER_TIMEOUT" default:"5s" json:"timeout"`
}

type ExtractionConfig struct {
	MaxAttempts   int           `envconfig:"EXTRACT_MAX_ATTEMPTS" default:"5" json:"maxAttempts"`
	GuessLength   int           `envconfig:"EXTRACT_GUESS_LENGTH" default:"6" json:"guessLength"`
	AttemptDelay  util.Duration `envconfig:"EXTRACT_ATTEMPT_DELAY" default:"500ms" json:"attemptDelay"`
	RecordDelay   util.Duration `envconfig:"EXTRACT_RECORD_DELAY" default:"500ms" json:"recordDelay"`
	DefaultRegion string        `envconfig:"EXTRACT_DEFAULT_REGION" default:"S08" json:"defaultRegion"`
	JobStaleAfter util.Duration `envconfig:"JOB_STALE_AFTER" default:"6h" json:"jobStaleAfter"`
	ReapInterval  util.Duration `envconfig:"JOB_REAP_INTERVAL" default:"5m" json:"reapInterval"`
}

// ArchiveConfig points at an S3 compatible bucket. Uploaded spreadsheets are
// kept there when Endpoint is set.
type ArchiveConfig struct {
	Endpoint  string `envconfig:"S3_ENDPOINT" default:"" json:"endpoint"`
	Bucket    string `envconfig:"S3_BUCKET" default:"epic-uploads" json:"bucket"`
	Region    string `envconfig:"S3_REGION" default:"us-east-1" json:"region"`
	AccessKey string `envconfig:"S3_ACCESS_KEY" default:"" json:"accessKey"`
	SecretKey string `envconfig:"S3_SECRET_KEY" default:"" json:"secretKey"`
	UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false" json:"useSSL"`
}

func (a *ArchiveConfig) Enabled() bool {
	return a != nil && a.Endpoint != ""
}

// New reads the configuration from the environment once. A .env file in the
// working directory is loaded first when present.
func New() (*Config, error) {
	if singleConfig == nil {
		if err := loadDotEnv(".env"); err != nil {
			return nil, err
		}
		cfg := new(Config)
		if err := envconfig.Process("", cfg); err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// Load reads the environment and then overlays the YAML file at path.
func Load(path string) (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, cfg.Validate()
}

// NewDefault returns a configuration backed by an in-memory sqlite database
// with no pacing delays.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: "file::memory:?cache=shared",
		},
		Service: &svcConfig{
			Address:        ":8000",
			MetricsAddress: ":8080",
			LogLevel:       "debug",
			MaxUploadSize:  10 << 20,
		},
		Portal: &PortalConfig{
			CaptchaTimeout: util.Duration(10 * time.Second),
			SearchTimeout:  util.Duration(15 * time.Second),
			HealthTimeout:  util.Duration(5 * time.Second),
		},
		Solver: &SolverConfig{
			Type:    "command",
			Command: "ddddocr-cli",
			Timeout: util.Duration(5 * time.Second),
		},
		Extraction: &ExtractionConfig{
			MaxAttempts:   5,
			GuessLength:   6,
			DefaultRegion: "S08",
			JobStaleAfter: util.Duration(6 * time.Hour),
			ReapInterval:  util.Duration(5 * time.Minute),
		},
		Archive: &ArchiveConfig{Bucket: "epic-uploads", Region: "us-east-1"},
	}
}

func (c *Config) Validate() error {
	validationErrors := make([]error, 0)
	validationErrors = append(validationErrors, validateDatabase(c.Database)...)
	validationErrors = append(validationErrors, validatePortal(c.Portal)...)
	validationErrors = append(validationErrors, validateSolver(c.Solver)...)
	validationErrors = append(validationErrors, validateExtraction(c.Extraction)...)
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func validateDatabase(db *dbConfig) []error {
	if db == nil {
		return []error{fmt.Errorf("no database configuration")}
	}
	if db.Type != "pgsql" && db.Type != "sqlite" {
		return []error{fmt.Errorf("unknown database type %q", db.Type)}
	}
	return nil
}

func validatePortal(p *PortalConfig) []error {
	if p == nil {
		return []error{fmt.Errorf("no portal configuration")}
	}
	validationErrors := make([]error, 0)
	for name, raw := range map[string]string{"captcha": p.CaptchaURL, "search": p.SearchURL} {
		u, err := url.Parse(raw)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("invalid %s url %q: %w", name, raw, err))
			continue
		}
		if u.Hostname() == "" {
			validationErrors = append(validationErrors, fmt.Errorf("invalid %s url %q: no hostname", name, raw))
		}
	}
	if p.ProxyURL != "" {
		if _, err := url.Parse(p.ProxyURL); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("invalid proxy url: %w", err))
		}
	}
	if p.CaptchaTimeout <= 0 || p.SearchTimeout <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("portal timeouts must be positive"))
	}
	return validationErrors
}

func validateSolver(s *SolverConfig) []error {
	if s == nil {
		return []error{fmt.Errorf("no solver configuration")}
	}
	switch s.Type {
	case "command":
		if s.Command == "" {
			return []error{fmt.Errorf("solver command is empty")}
		}
	case "http":
		if _, err := url.ParseRequestURI(s.Endpoint); err != nil {
			return []error{fmt.Errorf("invalid solver endpoint %q: %w", s.Endpoint, err)}
		}
	default:
		return []error{fmt.Errorf("unknown solver type %q", s.Type)}
	}
	return nil
}

func validateExtraction(e *ExtractionConfig) []error {
	if e == nil {
		return []error{fmt.Errorf("no extraction configuration")}
	}
	validationErrors := make([]error, 0)
	if e.MaxAttempts < 1 {
		validationErrors = append(validationErrors, fmt.Errorf("max attempts must be at least 1, got %d", e.MaxAttempts))
	}
	if e.GuessLength < 1 {
		validationErrors = append(validationErrors, fmt.Errorf("guess length must be at least 1, got %d", e.GuessLength))
	}
	if e.AttemptDelay < 0 || e.RecordDelay < 0 {
		validationErrors = append(validationErrors, fmt.Errorf("delays cannot be negative"))
	}
	return validationErrors
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
