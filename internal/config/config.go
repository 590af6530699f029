package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration passed into the pipeline and API at
// startup. Nothing reads ambient environment state mid-run.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Reddit     RedditConfig     `mapstructure:"reddit"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "sqlite" or "postgres"
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the connection string for the configured driver.
// Parameters: none.
// Returns:
//   - string: driver-specific DSN.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	Retries   int           `mapstructure:"retries"`
	Backoff   time.Duration `mapstructure:"backoff"`
	UserAgent string        `mapstructure:"user_agent"`
}

type ClassifierConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DedupConfig struct {
	HammingThreshold int `mapstructure:"hamming_threshold"`
}

type IngestConfig struct {
	Workers       int     `mapstructure:"workers"`
	BatchSize     int     `mapstructure:"batch_size"`
	NSFWThreshold float64 `mapstructure:"nsfw_threshold"`
}

type RedditConfig struct {
	Subreddits []string `mapstructure:"subreddits"`
	UserAgent  string   `mapstructure:"user_agent"`
	PostsPer   int      `mapstructure:"posts_per_subreddit"`
}

type FeedConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// Load reads configuration from a YAML file and the environment.
// Parameters:
//   - configPath: explicit config file path; empty searches ./configs and cwd.
// Returns:
//   - *Config: populated configuration.
//   - error: non-nil if reading or unmarshaling fails.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/memes.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_bytes", 10*1024*1024)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.backoff", 500*time.Millisecond)
	v.SetDefault("fetch.user_agent", "plentyofmemes/1.0 (+https://plentyofmemes.com)")
	v.SetDefault("classifier.base_url", "http://localhost:8501")
	v.SetDefault("classifier.model", "nsfw-mobilenet-v2")
	v.SetDefault("classifier.timeout", 30*time.Second)
	v.SetDefault("dedup.hamming_threshold", 5)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.batch_size", 25)
	v.SetDefault("ingest.nsfw_threshold", 0.4)
	v.SetDefault("reddit.subreddits", []string{
		"memes", "dankmemes", "funny", "wholesomememes", "AdviceAnimals",
	})
	v.SetDefault("reddit.user_agent", "plentyofmemes/1.0 (+https://plentyofmemes.com)")
	v.SetDefault("reddit.posts_per_subreddit", 25)
	v.SetDefault("feed.page_size", 20)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("archive.bucket", "memes")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("classifier.base_url", "CLASSIFIER_BASE_URL")
	v.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY")
	v.BindEnv("archive.access_key", "ARCHIVE_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_SECRET_KEY")
	v.BindEnv("admin.token", "ADMIN_TOKEN")
	v.BindEnv("reddit.user_agent", "REDDIT_USER_AGENT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
