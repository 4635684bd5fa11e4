package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/forecast"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/replenishment"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/segment"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Snapshot SnapshotConfig
	Insights InsightsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig points at an S3-compatible bucket holding snapshot files and
// published reports.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
	FolderPath      string
	DownloadDir     string
}

// SnapshotConfig selects where the server reads its snapshot from: "db",
// "dir", "bucket" or "drive".
type SnapshotConfig struct {
	Source      string
	Dir         string
	Prefix      string
	WorkDir     string
	Granularity string
	SinceDays   int
}

// InsightsConfig holds analysis defaults. Label thresholds are tuning knobs
// and expected to change per dataset.
type InsightsConfig struct {
	ForecastAlpha       float64
	ForecastHorizon     int
	ForecastGranularity string

	AnomalyThreshold float64

	SegmentK              int
	SegmentMaxIterations  int
	SegmentNormalize      bool
	SegmentRecentDays     float64
	SegmentLapsedDays     float64
	SegmentHighMonetary   float64
	SegmentFrequentOrders float64

	RecommendLimit int
	SafetyDays     float64
	CoverDays      float64
	WorkerCount    int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		setDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "autopo")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 10)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "insights")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_USE_SSL", true)

	v.SetDefault("DRIVE_CREDENTIALS_FILE", "credentials.json")
	v.SetDefault("DRIVE_FOLDER_PATH", "")
	v.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/drive")

	v.SetDefault("SNAPSHOT_SOURCE", "db")
	v.SetDefault("SNAPSHOT_DIR", "./data/snapshot")
	v.SetDefault("SNAPSHOT_PREFIX", "snapshots/latest")
	v.SetDefault("SNAPSHOT_WORK_DIR", "./data/work")
	v.SetDefault("SNAPSHOT_GRANULARITY", string(domain.GranularityMonth))
	v.SetDefault("SNAPSHOT_SINCE_DAYS", 0)

	v.SetDefault("INSIGHTS_FORECAST_ALPHA", forecast.DefaultAlpha)
	v.SetDefault("INSIGHTS_FORECAST_HORIZON", forecast.DefaultHorizon)
	v.SetDefault("INSIGHTS_FORECAST_GRANULARITY", string(domain.GranularityMonth))
	v.SetDefault("INSIGHTS_ANOMALY_THRESHOLD", 2.5)
	v.SetDefault("INSIGHTS_SEGMENT_K", segment.DefaultK)
	v.SetDefault("INSIGHTS_SEGMENT_MAX_ITERATIONS", segment.DefaultMaxIterations)
	v.SetDefault("INSIGHTS_SEGMENT_NORMALIZE", true)
	v.SetDefault("INSIGHTS_SEGMENT_RECENT_DAYS", 30)
	v.SetDefault("INSIGHTS_SEGMENT_LAPSED_DAYS", 90)
	v.SetDefault("INSIGHTS_SEGMENT_HIGH_MONETARY", 1000)
	v.SetDefault("INSIGHTS_SEGMENT_FREQUENT_ORDERS", 5)
	v.SetDefault("INSIGHTS_RECOMMEND_LIMIT", 5)
	v.SetDefault("INSIGHTS_SAFETY_DAYS", replenishment.DefaultSafetyDays)
	v.SetDefault("INSIGHTS_COVER_DAYS", replenishment.DefaultCoverDays)
	v.SetDefault("INSIGHTS_WORKER_COUNT", 4)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
			DownloadDir:     v.GetString("DRIVE_DOWNLOAD_DIR"),
		},
		Snapshot: SnapshotConfig{
			Source:      v.GetString("SNAPSHOT_SOURCE"),
			Dir:         v.GetString("SNAPSHOT_DIR"),
			Prefix:      v.GetString("SNAPSHOT_PREFIX"),
			WorkDir:     v.GetString("SNAPSHOT_WORK_DIR"),
			Granularity: v.GetString("SNAPSHOT_GRANULARITY"),
			SinceDays:   v.GetInt("SNAPSHOT_SINCE_DAYS"),
		},
		Insights: InsightsConfig{
			ForecastAlpha:         v.GetFloat64("INSIGHTS_FORECAST_ALPHA"),
			ForecastHorizon:       v.GetInt("INSIGHTS_FORECAST_HORIZON"),
			ForecastGranularity:   v.GetString("INSIGHTS_FORECAST_GRANULARITY"),
			AnomalyThreshold:      v.GetFloat64("INSIGHTS_ANOMALY_THRESHOLD"),
			SegmentK:              v.GetInt("INSIGHTS_SEGMENT_K"),
			SegmentMaxIterations:  v.GetInt("INSIGHTS_SEGMENT_MAX_ITERATIONS"),
			SegmentNormalize:      v.GetBool("INSIGHTS_SEGMENT_NORMALIZE"),
			SegmentRecentDays:     v.GetFloat64("INSIGHTS_SEGMENT_RECENT_DAYS"),
			SegmentLapsedDays:     v.GetFloat64("INSIGHTS_SEGMENT_LAPSED_DAYS"),
			SegmentHighMonetary:   v.GetFloat64("INSIGHTS_SEGMENT_HIGH_MONETARY"),
			SegmentFrequentOrders: v.GetFloat64("INSIGHTS_SEGMENT_FREQUENT_ORDERS"),
			RecommendLimit:        v.GetInt("INSIGHTS_RECOMMEND_LIMIT"),
			SafetyDays:            v.GetFloat64("INSIGHTS_SAFETY_DAYS"),
			CoverDays:             v.GetFloat64("INSIGHTS_COVER_DAYS"),
			WorkerCount:           v.GetInt("INSIGHTS_WORKER_COUNT"),
		},
	}
}

// ReportTTL is the cache lifetime of a computed report.
func (c CacheConfig) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// Options converts the configured defaults into engine options. An unknown
// granularity falls back to monthly periods.
func (c InsightsConfig) Options() insights.Options {
	opts := insights.DefaultOptions()

	opts.Forecast.Alpha = c.ForecastAlpha
	opts.Forecast.Horizon = c.ForecastHorizon
	if g, ok := domain.ParseGranularity(c.ForecastGranularity); ok {
		opts.Forecast.Granularity = g
	}

	opts.AnomalyThreshold = c.AnomalyThreshold

	opts.Segment.K = c.SegmentK
	opts.Segment.MaxIterations = c.SegmentMaxIterations
	opts.Segment.Normalize = c.SegmentNormalize
	opts.Labels = segment.LabelThresholds{
		RecentDays:     c.SegmentRecentDays,
		LapsedDays:     c.SegmentLapsedDays,
		HighMonetary:   c.SegmentHighMonetary,
		FrequentOrders: c.SegmentFrequentOrders,
	}

	opts.RecommendLimit = c.RecommendLimit
	if c.SafetyDays > 0 {
		opts.SafetyDays = c.SafetyDays
	}
	if c.CoverDays > 0 {
		opts.CoverDays = c.CoverDays
	}
	return opts
}
