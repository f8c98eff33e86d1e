package main

import (
	"log"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/docchat/embedder"
	googleembedder "github.com/w-h-a/docchat/embedder/google"
	"github.com/w-h-a/docchat/extractor"
	"github.com/w-h-a/docchat/extractor/llamaparse"
	"github.com/w-h-a/docchat/extractor/local"
	"github.com/w-h-a/docchat/generator"
	openaigenerator "github.com/w-h-a/docchat/generator/openai"
	"github.com/w-h-a/docchat/internal/service/session"
	httpserver "github.com/w-h-a/docchat/server/http"
)

var (
	cfg struct {
		Address string `help:"Address for the http server to listen on" default:":8080"`

		UseLlamaParse      bool          `help:"Use the LlamaParse cloud service for complex documents" default:"false"`
		ParsingInstruction string        `help:"Custom instruction for remote document parsing" default:"Extract all information"`
		ParseCooldown      time.Duration `help:"Delay between consecutive remote parse calls" default:"4s"`
		LlamaCloudKey      string        `help:"API key for LlamaParse" env:"LLAMA_CLOUD_API_KEY" default:""`

		EmbedderKey string `help:"API key for the embedding provider" env:"GOOGLE_API_KEY" default:""`
		Embedder    string `help:"Model identifier for embedder" default:"embedding-001"`

		GeneratorKey string `help:"API key for the generation provider" env:"GROQ_API_KEY" default:""`
		Model        string `help:"Groq model identifier for generation" default:"llama-3.1-8b-instant"`

		ChunkSize          int     `help:"Maximum chunk size in runes" default:"2048"`
		ChunkOverlap       int     `help:"Overlap between consecutive chunks in runes" default:"200"`
		TopK               int     `help:"Number of chunks to retrieve per query" default:"2"`
		Cutoff             float64 `help:"Minimum similarity score for a chunk to be used as context" default:"0.50"`
		MemoryTokens       int     `help:"Token budget for the conversation window" default:"4090"`
		CustomInstructions string  `help:"Instructions prepended to every question" default:""`
		ResetOnReindex     bool    `help:"Clear conversation history when re-indexing" default:"false"`
	}
)

func main() {
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	var ex extractor.Extractor
	if cfg.UseLlamaParse {
		ex = llamaparse.NewExtractor(
			extractor.WithApiKey(cfg.LlamaCloudKey),
			extractor.WithInstruction(cfg.ParsingInstruction),
			extractor.WithCooldown(cfg.ParseCooldown),
		)
	} else {
		ex = local.NewExtractor()
	}

	em := googleembedder.NewEmbedder(
		embedder.WithApiKey(cfg.EmbedderKey),
		embedder.WithModel(cfg.Embedder),
	)

	gen := openaigenerator.NewGenerator(
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithModel(cfg.Model),
		generator.WithBaseURL(generator.GroqBaseURL),
	)

	sess, err := session.New(ex, em, gen, session.Config{
		Model:                 cfg.Model,
		CustomInstructions:    cfg.CustomInstructions,
		ChunkSize:             cfg.ChunkSize,
		ChunkOverlap:          cfg.ChunkOverlap,
		TopK:                  cfg.TopK,
		Cutoff:                cfg.Cutoff,
		MemoryTokenLimit:      cfg.MemoryTokens,
		ResetHistoryOnReindex: cfg.ResetOnReindex,
	})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	srv := httpserver.NewServer(sess)

	if err := srv.Run(cfg.Address); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
