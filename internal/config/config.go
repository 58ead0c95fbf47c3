package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// DefaultPortalURL is the eCourts cause-list landing page.
const DefaultPortalURL = "https://services.ecourts.gov.in/ecourtindia_v6/?p=cause_list/"

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Portal    PortalConfig
	Browser   BrowserConfig
	Timeouts  TimeoutsConfig
	Selectors SelectorsConfig
	Output    OutputConfig
	Workers   WorkersConfig
	Runner    RunnerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	S3        S3Config
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type PortalConfig struct {
	URL string
}

type BrowserConfig struct {
	Driver   string // chromedp | playwright
	Headless bool
	ExecPath string
}

// TimeoutsConfig bounds each automation step; there is no job-level timeout.
type TimeoutsConfig struct {
	Navigate time.Duration
	CnrInput time.Duration
	Selector time.Duration
	Settle   time.Duration
	Reload   time.Duration
	Results  time.Duration
	Download time.Duration
}

type SelectorsConfig struct {
	State     string
	District  string
	Complex   string
	Date      string
	Submit    string
	CnrInput  string
	ResultRow string
	PDFAnchor string
}

type OutputConfig struct {
	Dir    string
	PDFDir string
}

type WorkersConfig struct {
	Count     int
	QueueSize int
}

type RunnerConfig struct {
	Mode    string // inprocess | subprocess
	Command string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type CatalogConfig struct {
	Path string
}

// Enabled reports whether artifacts should be mirrored to object storage.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

var bindings = map[string]string{
	"server.port":          "SERVER_PORT",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"portal.url":           "PORTAL_URL",
	"browser.driver":       "BROWSER_DRIVER",
	"browser.headless":     "BROWSER_HEADLESS",
	"browser.exec_path":    "BROWSER_EXEC_PATH",
	"output.dir":           "OUTPUT_DIR",
	"output.pdf_dir":       "OUTPUT_PDF_DIR",
	"workers.count":        "WORKERS",
	"workers.queue_size":   "WORKERS_QUEUE_SIZE",
	"runner.mode":          "RUNNER_MODE",
	"runner.command":       "RUNNER_COMMAND",
	"postgres.dsn":         "POSTGRES_DSN",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"redis.db":             "REDIS_DB",
	"redis.channel":        "REDIS_CHANNEL",
	"s3.bucket":            "S3_BUCKET",
	"s3.region":            "S3_REGION",
	"s3.endpoint":          "S3_ENDPOINT",
	"s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"s3.prefix":            "S3_PREFIX",
	"catalog.path":         "CATALOG_PATH",
	"timeouts.navigate":    "TIMEOUT_NAVIGATE",
	"timeouts.cnr_input":   "TIMEOUT_CNR_INPUT",
	"timeouts.selector":    "TIMEOUT_SELECTOR",
	"timeouts.settle":      "TIMEOUT_SETTLE",
	"timeouts.reload":      "TIMEOUT_RELOAD",
	"timeouts.results":     "TIMEOUT_RESULTS",
	"timeouts.download":    "TIMEOUT_DOWNLOAD",
	"selectors.state":      "SELECTOR_STATE",
	"selectors.district":   "SELECTOR_DISTRICT",
	"selectors.complex":    "SELECTOR_COMPLEX",
	"selectors.date":       "SELECTOR_DATE",
	"selectors.submit":     "SELECTOR_SUBMIT",
	"selectors.cnr_input":  "SELECTOR_CNR_INPUT",
	"selectors.result_row": "SELECTOR_RESULT_ROW",
	"selectors.pdf_anchor": "SELECTOR_PDF_ANCHOR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("portal.url", DefaultPortalURL)

	v.SetDefault("browser.driver", "chromedp")
	v.SetDefault("browser.headless", true)

	v.SetDefault("timeouts.navigate", 60*time.Second)
	v.SetDefault("timeouts.cnr_input", 15*time.Second)
	v.SetDefault("timeouts.selector", 30*time.Second)
	v.SetDefault("timeouts.settle", 30*time.Second)
	v.SetDefault("timeouts.reload", 15*time.Second)
	v.SetDefault("timeouts.results", 45*time.Second)
	v.SetDefault("timeouts.download", 60*time.Second)

	v.SetDefault("selectors.state", "select[id*='state'], select[name*='state']")
	v.SetDefault("selectors.district", "select[id*='district'], select[name*='district']")
	v.SetDefault("selectors.complex", "select[id*='courtComplex'], select[name*='court_complex']")
	v.SetDefault("selectors.date", "input[type='date'], input[id*='date'], input[placeholder*='Date']")
	v.SetDefault("selectors.submit", "button:has-text('Get'), button:has-text('Search'), button[title*='Search']")
	v.SetDefault("selectors.cnr_input", "input[placeholder*='CNR'], input[id*='cnr'], input[name*='cnr']")
	v.SetDefault("selectors.result_row", "table.causelist tr, div.causeListRow, .cl-row, .case-row")
	v.SetDefault("selectors.pdf_anchor", "a[href$='.pdf']")

	v.SetDefault("output.dir", "outputs")
	v.SetDefault("output.pdf_dir", "")

	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.queue_size", 256)

	v.SetDefault("runner.mode", "inprocess")
	v.SetDefault("runner.command", "")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "ecourts:jobs")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.prefix", "ecourts")
	v.SetDefault("catalog.path", "catalog.yaml")
}

// Load reads defaults, an optional config.yaml (./ or ./config) and the
// environment. An explicit path wins over the search locations.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// explicit bindings only: a bare section name such as BROWSER or WORKERS
	// must never shadow the keys under it
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v), nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	outDir := v.GetString("output.dir")
	pdfDir := v.GetString("output.pdf_dir")
	if pdfDir == "" {
		pdfDir = filepath.Join(outDir, "pdfs")
	}

	return &Config{
		Server: ServerConfig{Port: v.GetString("server.port")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Portal: PortalConfig{URL: v.GetString("portal.url")},
		Browser: BrowserConfig{
			Driver:   v.GetString("browser.driver"),
			Headless: v.GetBool("browser.headless"),
			ExecPath: v.GetString("browser.exec_path"),
		},
		Timeouts: TimeoutsConfig{
			Navigate: v.GetDuration("timeouts.navigate"),
			CnrInput: v.GetDuration("timeouts.cnr_input"),
			Selector: v.GetDuration("timeouts.selector"),
			Settle:   v.GetDuration("timeouts.settle"),
			Reload:   v.GetDuration("timeouts.reload"),
			Results:  v.GetDuration("timeouts.results"),
			Download: v.GetDuration("timeouts.download"),
		},
		Selectors: SelectorsConfig{
			State:     v.GetString("selectors.state"),
			District:  v.GetString("selectors.district"),
			Complex:   v.GetString("selectors.complex"),
			Date:      v.GetString("selectors.date"),
			Submit:    v.GetString("selectors.submit"),
			CnrInput:  v.GetString("selectors.cnr_input"),
			ResultRow: v.GetString("selectors.result_row"),
			PDFAnchor: v.GetString("selectors.pdf_anchor"),
		},
		Output: OutputConfig{Dir: outDir, PDFDir: pdfDir},
		Workers: WorkersConfig{
			Count:     v.GetInt("workers.count"),
			QueueSize: v.GetInt("workers.queue_size"),
		},
		Runner: RunnerConfig{
			Mode:    v.GetString("runner.mode"),
			Command: v.GetString("runner.command"),
		},
		Postgres: PostgresConfig{DSN: v.GetString("postgres.dsn")},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		S3: S3Config{
			Bucket:          v.GetString("s3.bucket"),
			Region:          v.GetString("s3.region"),
			Endpoint:        v.GetString("s3.endpoint"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			Prefix:          v.GetString("s3.prefix"),
		},
		Catalog: CatalogConfig{Path: v.GetString("catalog.path")},
	}
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password of a URL-style DSN: user:pass@ -> user:****@.
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}
