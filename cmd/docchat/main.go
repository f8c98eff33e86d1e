package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
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
)

var (
	cfg struct {
		// Extraction config
		UseLlamaParse      bool          `help:"Use the LlamaParse cloud service for complex documents (graphs, tables, etc.)" default:"false"`
		ParsingInstruction string        `help:"Custom instruction for remote document parsing" default:"Extract all information"`
		ParseCooldown      time.Duration `help:"Delay between consecutive remote parse calls" default:"4s"`
		LlamaCloudKey      string        `help:"API key for LlamaParse" env:"LLAMA_CLOUD_API_KEY" default:""`

		// Embedder config
		EmbedderKey string `help:"API key for the embedding provider" env:"GOOGLE_API_KEY" default:""`
		Embedder    string `help:"Model identifier for embedder" default:"embedding-001"`

		// Generator config
		GeneratorKey string `help:"API key for the generation provider" env:"GROQ_API_KEY" default:""`
		Model        string `help:"Groq model identifier for generation" default:"llama-3.1-8b-instant"`

		// Pipeline config
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
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	// Create extraction strategy
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

	// Create embedder
	em := googleembedder.NewEmbedder(
		embedder.WithApiKey(cfg.EmbedderKey),
		embedder.WithModel(cfg.Embedder),
	)

	// Create generator
	gen := openaigenerator.NewGenerator(
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithModel(cfg.Model),
		generator.WithBaseURL(generator.GroqBaseURL),
	)

	// Create session
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

	fmt.Println("docchat. Stage files with `/file <path>`, build the index with `/index`, then ask questions. Empty line quits.")

	var staged []extractor.UploadedFile

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("Error reading input:", err)
			continue
		}
		input = strings.TrimSpace(input)
		if len(input) == 0 {
			fmt.Println("Goodbye!")
			return
		}

		if strings.HasPrefix(input, "/file ") {
			path := strings.TrimSpace(strings.TrimPrefix(input, "/file "))
			if !extractor.IsSupported(path) {
				fmt.Printf("Unsupported file type: %s\n", filepath.Ext(path))
				continue
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Failed to read file: %v\n", err)
				continue
			}
			staged = append(staged, extractor.UploadedFile{Name: filepath.Base(path), Bytes: raw})
			fmt.Printf("Staged %s (%d files total)\n", filepath.Base(path), len(staged))
			continue
		}

		if input == "/index" {
			if len(staged) == 0 {
				fmt.Println("Please stage at least one file first.")
				continue
			}

			report, err := sess.Index(ctx, staged, extractor.WithNotify(func(result extractor.FileResult) {
				if result.Err != nil {
					fmt.Printf("  %s: %v\n", result.File, result.Err)
				} else {
					fmt.Printf("  %s: %d document(s)\n", result.File, len(result.Documents))
				}
			}))
			if err != nil {
				fmt.Printf("Indexing failed: %v\n", err)
				continue
			}

			staged = nil
			fmt.Printf("Data processed: %d chunk(s) indexed. Ready to answer your questions.\n", report.Chunks)
			continue
		}

		answer, err := sess.Ask(ctx, input)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%s\n", answer)
		fmt.Println("---")
	}
}
