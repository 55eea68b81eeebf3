package utils

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// GetRouter returns the process router with /metrics and the swagger UI mounted.
// The binary registers its swagger document by importing its docs package.
func GetRouter() RouterClient {
	once.Do(func() {
		router = NewRouter(true)
	})

	return RouterClient{Router: router}
}

// NewRouter builds a fresh router. Tests use it to avoid the shared singleton.
func NewRouter(withSwagger bool) *chi.Mux {
	r := chi.NewRouter()
	if withSwagger {
		InitSwagger(r)
	}
	//register prometheus
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
