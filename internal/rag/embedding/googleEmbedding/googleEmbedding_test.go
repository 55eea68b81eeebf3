package googleEmbedding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGetContent(t *testing.T) {
	content := getContent([]string{"a", "b"})
	if len(content) != 2 || content[1].Parts[0].Text != "b" {
		t.Fatalf("unexpected content %+v", content)
	}
}

func TestDoRetry(t *testing.T) {
	log := logger_i.NewLogger("test")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc other", status.Error(codes.InvalidArgument, "bad"), false},
		{"http 429", fmt.Errorf("wrapped: %w", genai.APIError{Code: 429}), true},
		{"http 400", genai.APIError{Code: 400}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doRetry(tt.err, log); got != tt.want {
				t.Errorf("doRetry() = %v; want %v", got, tt.want)
			}
		})
	}
}
