package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	once         sync.Once
	pooledClient *http.Client
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Get returns the shared client used for the embedding, LLM and PII analyzer endpoints.
// No client level timeout: callers bound each call with a context deadline.
func Get() *http.Client {
	once.Do(func() {
		pooledClient = &http.Client{
			Transport: otelhttp.NewTransport(customTransport),
		}
	})
	return pooledClient
}
