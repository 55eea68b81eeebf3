package utils

//run the broker with jetstream enabled
//docker run -p 4222:4222 -d nats -js

//run redis (index writer lease)
//docker run -p 6379:6379 -d redis

//optional qdrant mirror
//docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qdrant/storage qdrant/qdrant

//local models
//ollama pull mistral && ollama pull all-minilm

//optional PII analyzer sidecar
//docker run -p 5002:3000 -d mcr.microsoft.com/presidio-analyzer

//swagger init
//swag init -g cmd/ingestor/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/ingestor/docs
//swag init -g cmd/qa/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/qa/docs
