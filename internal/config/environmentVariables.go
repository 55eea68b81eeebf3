package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 5
	BURST_RATE_LIMIT_PER_SECOND = 10

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 120 * time.Second //llm answers on a local model can be slow
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//listening ports
	IngestorListenAddr = ":8000"
	QAListenAddr       = ":8001"
	DeIDStatusAddr     = ":8002"
	IndexerStatusAddr  = ":8003"

	//uploads
	MaxUploadSize   = 32 << 20 //32mb
	UploadDirectory = "temporary_data"
	PageExtractWait = 10 * time.Second

	//broker
	NatsURL             = "nats://127.0.0.1:4222"
	RawQueue            = "raw_documents_queue"
	CleanQueue          = "clean_documents_queue"
	BrokerReconnectWait = 5 * time.Second
	BrokerFetchWait     = 2 * time.Second
	BrokerPublishWait   = 10 * time.Second
	BrokerAckWait       = 10 * time.Minute

	//relational store
	SQLitePath = "documents.db"

	//index
	IndexDirectory    = "."
	IndexFileName     = "vector_store.idx"
	MetadataFileName  = "metadata_store.json"
	DefaultDataDir    = "default_data"
	ChunkSize         = 500
	RetrievalTopK     = 3
	KnowledgeBaseID   = "KB_MTC"
	KnowledgeBaseType = "knowledge_base"
	PatientFileType   = "patient_file"
	BootstrapPoolSize = 4

	//writer lease
	IndexLeaseKey   = "clinical:index:writer"
	IndexLeaseTTL   = 30 * time.Second
	IndexLeaseRenew = 10 * time.Second

	//embeddings
	EmbeddingProvider  = "ollama"
	EmbeddingModel     = "all-minilm"
	EmbeddingTimeout   = 60 * time.Second
	GeminiEmbedModel   = "gemini-embedding-001"
	EmbeddingDimension = 384

	//llm
	LLMProvider      = "ollama"
	LLMModel         = "mistral"
	GeminiModelName  = "gemini-2.5-flash-lite"
	OllamaBaseURL    = "http://localhost:11434"
	LLMTimeout       = 5 * time.Minute
	ModelTemperature = 0.0

	//pii
	PIILanguage        = "en"
	PIIAnalyzerTimeout = 30 * time.Second

	//vectorDB
	QdrantHost          = ""
	QdrantGrpcPort      = 6334
	QdrantUseTLS        = false
	QdrantPoolSize      = 1
	QdrantCollection    = "clinical-chunks"
	VectorBackendFlat   = "flat"
	VectorBackendQdrant = "qdrant"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisLeaseStore = 0
)
