package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the runtime configuration shared by every binary.
// Defaults come from the constants in this package, then an optional TOML file
// named by CLINICAL_CONFIG, then environment variables.
type Settings struct {
	IsProd   bool   `toml:"is_prod"`
	LogLevel string `toml:"log_level"`

	AuthToken    string `toml:"auth_token"`
	NoAuthBypass bool   `toml:"no_auth_bypass"`

	IngestorListenAddr string `toml:"ingestor_listen_addr"`
	QAListenAddr       string `toml:"qa_listen_addr"`
	DeIDStatusAddr     string `toml:"deid_status_addr"`
	IndexerStatusAddr  string `toml:"indexer_status_addr"`

	NatsURL    string `toml:"nats_url"`
	RawQueue   string `toml:"raw_queue"`
	CleanQueue string `toml:"clean_queue"`

	SQLitePath string `toml:"sqlite_path"`
	UploadDir  string `toml:"upload_dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`

	IndexDir       string `toml:"index_dir"`
	DefaultDataDir string `toml:"default_data_dir"`
	ChunkSize      int    `toml:"chunk_size"`
	TopK           int    `toml:"top_k"`
	WatchIndex     bool   `toml:"watch_index"`
	VectorBackend  string `toml:"vector_backend"`

	EmbeddingProvider  string        `toml:"embedding_provider"`
	EmbeddingModel     string        `toml:"embedding_model"`
	EmbeddingDimension int           `toml:"embedding_dimension"`
	EmbeddingTimeout   time.Duration `toml:"-"`

	LLMProvider string        `toml:"llm_provider"`
	LLMModel    string        `toml:"llm_model"`
	LLMTimeout  time.Duration `toml:"-"`

	OllamaBaseURL string `toml:"ollama_base_url"`
	GeminiAPIKey  string `toml:"gemini_api_key"`
	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIBaseURL string `toml:"openai_base_url"`

	PIIAnalyzerURL      string `toml:"pii_analyzer_url"`
	PIILanguage         string `toml:"pii_language"`
	DeIDIncludeLocation bool   `toml:"deid_include_location"`

	QdrantHost string `toml:"qdrant_host"`
	QdrantPort int    `toml:"qdrant_port"`
}

var (
	settingsOnce sync.Once
	current      *Settings
	loadErr      error
)

// Get returns the process wide settings, loading them on first use.
func Get() *Settings {
	settingsOnce.Do(func() {
		current, loadErr = Load()
		if loadErr != nil {
			// a broken config file must not silently become defaults
			panic(loadErr)
		}
	})
	return current
}

func Defaults() *Settings {
	return &Settings{
		IsProd:             false,
		LogLevel:           "debug",
		NoAuthBypass:       true,
		IngestorListenAddr: IngestorListenAddr,
		QAListenAddr:       QAListenAddr,
		DeIDStatusAddr:     DeIDStatusAddr,
		IndexerStatusAddr:  IndexerStatusAddr,
		NatsURL:            NatsURL,
		RawQueue:           RawQueue,
		CleanQueue:         CleanQueue,
		SQLitePath:         SQLitePath,
		UploadDir:          UploadDirectory,
		RedisAddr:          RedisAddr,
		IndexDir:           IndexDirectory,
		DefaultDataDir:     DefaultDataDir,
		ChunkSize:          ChunkSize,
		TopK:               RetrievalTopK,
		VectorBackend:      VectorBackendFlat,
		EmbeddingProvider:  EmbeddingProvider,
		EmbeddingModel:     EmbeddingModel,
		EmbeddingDimension: EmbeddingDimension,
		EmbeddingTimeout:   EmbeddingTimeout,
		LLMProvider:        LLMProvider,
		LLMModel:           LLMModel,
		LLMTimeout:         LLMTimeout,
		OllamaBaseURL:      OllamaBaseURL,
		PIILanguage:        PIILanguage,
		QdrantHost:         QdrantHost,
		QdrantPort:         QdrantGrpcPort,
	}
}

// Load builds a fresh Settings value without touching the process wide copy.
func Load() (*Settings, error) {
	s := Defaults()
	if path := os.Getenv("CLINICAL_CONFIG"); path != "" {
		if err := s.mergeFile(path); err != nil {
			return nil, err
		}
	}
	s.mergeEnv()
	return s, nil
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (s *Settings) mergeEnv() {
	envBool(&s.IsProd, "IS_PROD")
	envString(&s.LogLevel, "LOG_LEVEL")
	envString(&s.AuthToken, "AUTH_TOKEN")
	envBool(&s.NoAuthBypass, "NO_AUTH_BYPASS")

	envString(&s.IngestorListenAddr, "INGESTOR_LISTEN_ADDR")
	envString(&s.QAListenAddr, "QA_LISTEN_ADDR")
	envString(&s.DeIDStatusAddr, "DEID_STATUS_ADDR")
	envString(&s.IndexerStatusAddr, "INDEXER_STATUS_ADDR")

	envString(&s.NatsURL, "NATS_URL")
	envString(&s.RawQueue, "RAW_QUEUE")
	envString(&s.CleanQueue, "CLEAN_QUEUE")

	envString(&s.SQLitePath, "SQLITE_PATH")
	envString(&s.UploadDir, "UPLOAD_DIR")
	envString(&s.RedisAddr, "REDIS_ADDR")
	envString(&s.RedisPassword, "REDIS_PASSWORD")

	envString(&s.IndexDir, "INDEX_DIR")
	envString(&s.DefaultDataDir, "DEFAULT_DATA_DIR")
	envInt(&s.ChunkSize, "CHUNK_SIZE")
	envInt(&s.TopK, "QA_TOP_K")
	envBool(&s.WatchIndex, "QA_WATCH_INDEX")
	envString(&s.VectorBackend, "QA_VECTOR_BACKEND")

	envString(&s.EmbeddingProvider, "EMBEDDING_PROVIDER")
	envString(&s.EmbeddingModel, "EMBEDDING_MODEL")
	envInt(&s.EmbeddingDimension, "EMBEDDING_DIMENSION")
	envDuration(&s.EmbeddingTimeout, "EMBEDDING_TIMEOUT")

	envString(&s.LLMProvider, "LLM_PROVIDER")
	envString(&s.LLMModel, "LLM_MODEL")
	envDuration(&s.LLMTimeout, "LLM_TIMEOUT")

	envString(&s.OllamaBaseURL, "OLLAMA_BASE_URL")
	envString(&s.GeminiAPIKey, "GEMINI_API_KEY")
	envString(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&s.OpenAIBaseURL, "OPENAI_BASE_URL")

	envString(&s.PIIAnalyzerURL, "PII_ANALYZER_URL")
	envString(&s.PIILanguage, "PII_LANGUAGE")
	envBool(&s.DeIDIncludeLocation, "DEID_INCLUDE_LOCATION")

	envString(&s.QdrantHost, "QDRANT_HOST")
	envInt(&s.QdrantPort, "QDRANT_PORT")
}

func (s *Settings) IndexPath() string {
	return filepath.Join(s.IndexDir, IndexFileName)
}

func (s *Settings) MetadataPath() string {
	return filepath.Join(s.IndexDir, MetadataFileName)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
