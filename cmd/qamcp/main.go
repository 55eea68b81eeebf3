// Command qamcp exposes the QA service as an MCP tool over stdio.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/rag"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "1.0.0"

type AskInput struct {
	Question string `json:"question" jsonschema:"the practitioner's question, in French or English"`
}

type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type tool struct {
	service rag.Service
}

func (t *tool) ask(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := t.service.Ask(ctx, input.Question)
	if errors.Is(err, vectorDB.ErrIndexUnavailable) {
		return nil, AskOutput{}, errors.New("Index non chargé.")
	}
	if err != nil {
		return nil, AskOutput{}, err
	}
	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{Answer: answer.Text, Sources: sources}, nil
}

func newServer(service rag.Service) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "clinical-qa", Version: version}, nil)
	t := &tool{service: service}
	mcp.AddTool(s, &mcp.Tool{
		Name:        "ask_clinical_question",
		Description: "Answer a question from the MTC knowledge base and the de-identified patient files",
	}, t.ask)
	return s
}

func main() {
	settings := config.Get()
	// stdout carries the protocol
	logger_i.InitWith(os.Stderr, settings.IsProd, settings.LogLevel, "qamcp")
	logger := logger_i.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := rag.NewRuntime(ctx, settings)
	if err != nil {
		logger.Error("QA service failed to initialize", "error", err)
		os.Exit(1)
	}
	if runtime.Live != nil && settings.WatchIndex {
		go runtime.Live.Watch(ctx)
	}

	if err := newServer(runtime.Service).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}
