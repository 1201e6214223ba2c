package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Models        ModelsConfig        `mapstructure:"models"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
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
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
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

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"` // s3, minio
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Region        string `mapstructure:"region"`
	UploadBucket  string `mapstructure:"upload_bucket"`
	ResultsBucket string `mapstructure:"results_bucket"`
}

// ModelsConfig selects and configures the language-model backends.
type ModelsConfig struct {
	// Default backend for tasks: "openai" or "gemini". Document-heavy
	// tasks route to Gemini regardless (long-context PDF handling).
	Default string       `mapstructure:"default"`
	OpenAI  OpenAIConfig `mapstructure:"openai"`
	Gemini  GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// EmbeddingConfig configures the retrieval-index embedding providers.
// Text passages and image frames embed through separate models but
// share the provider endpoint.
type EmbeddingConfig struct {
	Provider        string `mapstructure:"provider"`
	APIKey          string `mapstructure:"api_key"`
	TextModel       string `mapstructure:"text_model"`
	ImageModel      string `mapstructure:"image_model"`
	TextDimensions  int    `mapstructure:"text_dimensions"`
	ImageDimensions int    `mapstructure:"image_dimensions"`
}

type TranscriptionConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

type ProcessingConfig struct {
	TempDir        string        `mapstructure:"temp_dir"`
	PreviewSize    int           `mapstructure:"preview_size"`
	RetrievalTopK  int           `mapstructure:"retrieval_top_k"`
	MaxFrames      int           `mapstructure:"max_frames"`
	ResolveRetries int           `mapstructure:"resolve_retries"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	ResultURLTTL   time.Duration `mapstructure:"result_url_ttl"`
}

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
	v.SetDefault("database.path", "./data/unstruct.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("storage.type", "minio")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.upload_bucket", "unstruct-uploads")
	v.SetDefault("storage.results_bucket", "unstruct-results")
	v.SetDefault("models.default", "openai")
	v.SetDefault("models.openai.model", "gpt-4o-mini")
	v.SetDefault("models.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("models.gemini.model", "gemini-1.5-flash")
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.text_model", "jina-embeddings-v3")
	v.SetDefault("embedding.image_model", "jina-clip-v2")
	v.SetDefault("embedding.text_dimensions", 1024)
	v.SetDefault("embedding.image_dimensions", 1024)
	v.SetDefault("transcription.provider", "deepgram")
	v.SetDefault("transcription.model", "nova-2")
	v.SetDefault("processing.temp_dir", "/tmp/unstruct-assets")
	v.SetDefault("processing.preview_size", 5)
	v.SetDefault("processing.retrieval_top_k", 10)
	v.SetDefault("processing.max_frames", 20)
	v.SetDefault("processing.resolve_retries", 3)
	v.SetDefault("processing.chunk_size", 1000)
	v.SetDefault("processing.chunk_overlap", 200)
	v.SetDefault("processing.result_url_ttl", time.Hour)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("models.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("models.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("models.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("transcription.api_key", "DEEPGRAM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
