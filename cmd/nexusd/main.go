package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nexusrag/internal/chunker"
	"nexusrag/internal/config"
	"nexusrag/internal/embedding"
	"nexusrag/internal/embedding/gemini"
	"nexusrag/internal/embedding/hashing"
	"nexusrag/internal/llm"
	"nexusrag/internal/loader"
	"nexusrag/internal/logger"
	"nexusrag/internal/retriever"
	"nexusrag/internal/server"
	"nexusrag/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.New(cfg.Logging)
	defer zl.Sync()

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "gemini":
		client, err := gemini.NewClient(gemini.Config{
			APIKeyEnv: cfg.Embedder.Gemini.APIKeyEnv,
			Model:     cfg.Embedder.Gemini.Model,
			Timeout:   time.Duration(cfg.Embedder.Gemini.TimeoutSecs) * time.Second,
		})
		if err != nil {
			zl.Fatal("gemini embedder init failed", zap.Error(err))
		}
		emb = client
	case "hashing":
		emb = hashing.NewEmbedder(cfg.Embedder.Hashing.Dimension)
	default:
		zl.Fatal("unknown embedder", zap.String("type", cfg.Embedder.Type))
	}

	ret := retriever.New(
		loader.New(zl),
		chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		emb,
		summarizer.New(3),
		zl,
		retriever.Options{
			StoreRoot: cfg.VectorStore.Root,
			TopK:      cfg.Retrieval.TopK,
			CacheTTL:  cfg.VectorStore.CacheTTL(),
		},
	)

	sessionLLM := llm.NewClient(llm.Config{
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		Timeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	judgeLLM := llm.NewClient(llm.Config{
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.Judge.Model,
		Timeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	judgeToken := os.Getenv(cfg.Judge.TokenEnv)
	if judgeToken == "" {
		zl.Fatal("judge bearer token not set", zap.String("env", cfg.Judge.TokenEnv))
	}

	srv := server.New(cfg, server.Deps{
		Retriever:  ret,
		SessionLLM: sessionLLM,
		JudgeLLM:   judgeLLM,
		JudgeToken: judgeToken,
		Log:        zl,
	})
	if err := srv.Run(); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
