package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper" // 导入 Viper
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	AliyunOSS AliyunOSSConfig `mapstructure:"aliyun_oss"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Upload    UploadConfig    `mapstructure:"upload"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug / release / test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置，driver 可选 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

// RabbitMQConfig RabbitMQ配置，URL 为空时不发布事件
type RabbitMQConfig struct {
	URL            string `mapstructure:"url"`
	FinalizedQueue string `mapstructure:"finalized_queue"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
}

// StorageConfig 分片和成品文件的存储后端
type StorageConfig struct {
	Type          string `mapstructure:"type"` // local / minio / aliyun_oss
	LocalBasePath string `mapstructure:"local_base_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// TelemetryConfig OpenTelemetry 指标导出
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// UploadConfig 分片上传相关的参数，构造 SessionRegistry 时显式传入
type UploadConfig struct {
	MinChunkSize     int64         `mapstructure:"min_chunk_size"`
	DefaultChunkSize int64         `mapstructure:"default_chunk_size"`
	MaxChunkSize     int64         `mapstructure:"max_chunk_size"`
	MaxFileSize      int64         `mapstructure:"max_file_size"` // 0 表示不限制
	DefaultTTL       time.Duration `mapstructure:"default_ttl"`
	MaxTTL           time.Duration `mapstructure:"max_ttl"`
	Retention        time.Duration `mapstructure:"retention"` // 终态会话记录保留时长
	ReaperInterval   time.Duration `mapstructure:"reaper_interval"`
	ReaperBatchSize  int           `mapstructure:"reaper_batch_size"`
	ChunkTimeout     time.Duration `mapstructure:"chunk_timeout"`
	MergeTimeout     time.Duration `mapstructure:"merge_timeout"`
	LockBackend      string        `mapstructure:"lock_backend"` // memory / redis
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
}

// DefaultUploadConfig 返回未配置时使用的上传参数
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		MinChunkSize:     256 << 10,
		DefaultChunkSize: 5 << 20,
		MaxChunkSize:     64 << 20,
		DefaultTTL:       24 * time.Hour,
		MaxTTL:           7 * 24 * time.Hour,
		Retention:        30 * 24 * time.Hour,
		ReaperInterval:   10 * time.Minute,
		ReaperBatchSize:  200,
		ChunkTimeout:     2 * time.Minute,
		MergeTimeout:     30 * time.Minute,
		LockBackend:      "memory",
		LockTTL:          time.Hour,
	}
}

// Validate 检查分片大小区间等参数是否自洽
func (u UploadConfig) Validate() error {
	if u.MinChunkSize <= 0 || u.MaxChunkSize < u.MinChunkSize {
		return errors.New("upload: invalid chunk size bounds")
	}
	if u.DefaultChunkSize < u.MinChunkSize || u.DefaultChunkSize > u.MaxChunkSize {
		return errors.New("upload: default_chunk_size out of [min_chunk_size, max_chunk_size]")
	}
	if u.DefaultTTL <= 0 || u.MaxTTL < u.DefaultTTL {
		return errors.New("upload: invalid ttl bounds")
	}
	if u.LockBackend == "redis" {
		// 锁过期后另一个实例可以接管同一会话的合并，所以锁必须比合并活得久
		if u.MergeTimeout <= 0 || u.LockTTL <= u.MergeTimeout {
			return errors.New("upload: redis lock_ttl must exceed a positive merge_timeout")
		}
	}
	return nil
}

var AppConfig *Config // 全局应用配置实例，仅供 main 使用

func setDefaults(v *viper.Viper) {
	def := DefaultUploadConfig()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("rabbitmq.finalized_queue", "media_finalized_queue")
	v.SetDefault("jwt.issuer", "go-cms")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_base_path", "./uploads/data")
	v.SetDefault("log.output_path", "logs/app.log")
	v.SetDefault("log.error_path", "logs/error.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("telemetry.service_name", "go-cms-upload")
	v.SetDefault("telemetry.export_interval", 30*time.Second)
	v.SetDefault("upload.min_chunk_size", def.MinChunkSize)
	v.SetDefault("upload.default_chunk_size", def.DefaultChunkSize)
	v.SetDefault("upload.max_chunk_size", def.MaxChunkSize)
	v.SetDefault("upload.max_file_size", def.MaxFileSize)
	v.SetDefault("upload.default_ttl", def.DefaultTTL)
	v.SetDefault("upload.max_ttl", def.MaxTTL)
	v.SetDefault("upload.retention", def.Retention)
	v.SetDefault("upload.reaper_interval", def.ReaperInterval)
	v.SetDefault("upload.reaper_batch_size", def.ReaperBatchSize)
	v.SetDefault("upload.chunk_timeout", def.ChunkTimeout)
	v.SetDefault("upload.merge_timeout", def.MergeTimeout)
	v.SetDefault("upload.lock_backend", def.LockBackend)
	v.SetDefault("upload.lock_ttl", def.LockTTL)
}

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env")
	}

	v := viper.New()
	v.SetConfigName("config")       // 配置文件名 (不带扩展名)
	v.SetConfigType("yaml")         // 配置文件类型
	v.AddConfigPath(".")            // 在当前目录查找配置文件
	v.AddConfigPath("./configs")    // 也可以添加其他路径，例如 ./configs/
	v.AddConfigPath("/etc/go-cms/") // 生产环境常见路径

	// 读取环境变量，例如 GO_CMS_UPLOAD_MAX_CHUNK_SIZE 对应 upload.max_chunk_size
	v.SetEnvPrefix("GO_CMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// 配置文件未找到不是致命错误，依赖环境变量和默认值
		log.Println("Warning: config file not found, using environment variables or default values.")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Upload.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	log.Println("Configuration loaded successfully with Viper.")
	return cfg, nil
}
