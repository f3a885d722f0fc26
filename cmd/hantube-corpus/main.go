// Command hantube-corpus prepares grammar corpus data for the server.
//
// It has two subcommands:
//
//	hantube-corpus clean -in raw.txt -out corpus.txt
//	    Normalizes a raw scraped grammar dump into the "//"-separated block
//	    form the server consumes.
//
//	hantube-corpus index -config config.yaml
//	    Builds the vector index offline and persists it to the configured
//	    index directory, so the first server request does not pay the
//	    embedding cost.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hantube/hantube/internal/config"
	"github.com/hantube/hantube/internal/corpus"
	"github.com/hantube/hantube/internal/index"
	"github.com/hantube/hantube/pkg/provider/embeddings"
	ollamaembed "github.com/hantube/hantube/pkg/provider/embeddings/ollama"
	oaembed "github.com/hantube/hantube/pkg/provider/embeddings/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		return 2
	}

	switch os.Args[1] {
	case "clean":
		return runClean(os.Args[2:])
	case "index":
		return runIndex(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "hantube-corpus: unknown subcommand %q\n\n", os.Args[1])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  hantube-corpus clean -in raw.txt -out corpus.txt")
	fmt.Fprintln(os.Stderr, "  hantube-corpus index -config config.yaml")
}

// ── clean ─────────────────────────────────────────────────────────────────────

func runClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	inPath := fs.String("in", "", "raw corpus dump to clean")
	outPath := fs.String("out", "", "destination for the cleaned corpus")
	fs.Parse(args)

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "hantube-corpus: clean requires -in and -out")
		return 2
	}

	raw, err := os.ReadFile(*inPath)
	if err != nil {
		slog.Error("failed to read raw corpus", "path", *inPath, "err", err)
		return 1
	}

	cleaned, points := cleanCorpus(string(raw))

	if err := writeAtomic(*outPath, cleaned); err != nil {
		slog.Error("failed to write cleaned corpus", "path", *outPath, "err", err)
		return 1
	}

	slog.Info("corpus cleaned",
		"in", *inPath,
		"out", *outPath,
		"grammar_points", points)
	return 0
}

var onlyDigits = regexp.MustCompile(`^\d+$`)

// cleanCorpus normalizes a raw scraped grammar dump: page-break lines
// (starting with "---") are dropped, and a "//" separator line is inserted
// before every grammar point after the first so the result parses with
// [corpus.Parse]. Returns the cleaned text and the number of grammar points
// found.
//
// A grammar point starts at a line containing only its ordinal number,
// immediately followed (ignoring blank lines) by a "基礎 第N級" or "進階 第N級"
// level heading.
func cleanCorpus(raw string) (string, int) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "---") {
			continue
		}
		lines = append(lines, line)
	}

	var out strings.Builder
	points := 0
	for i, line := range lines {
		if isGrammarPointStart(lines, i) {
			points++
			if points > 1 {
				out.WriteString("//\n")
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.String(), points
}

func isGrammarPointStart(lines []string, i int) bool {
	if !onlyDigits.MatchString(strings.TrimSpace(lines[i])) {
		return false
	}
	for _, next := range lines[i+1:] {
		next = strings.TrimSpace(next)
		if next == "" {
			continue
		}
		return strings.HasPrefix(next, "基礎 第") || strings.HasPrefix(next, "進階 第")
	}
	return false
}

// writeAtomic writes content via a temp file and rename so a crash mid-write
// cannot leave a truncated corpus behind.
func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".corpus-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ── index ─────────────────────────────────────────────────────────────────────

func runIndex(args []string) int {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	envPath := fs.String("env", ".env", "path to an optional dotenv file with API keys")
	fs.Parse(args)

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load dotenv file", "path", *envPath, "err", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "err", err)
		return 1
	}
	if cfg.Corpus.Path == "" {
		slog.Error("corpus.path is not configured; nothing to index")
		return 1
	}
	if cfg.Corpus.IndexDir == "" {
		slog.Error("corpus.index_dir is not configured; nowhere to persist the index")
		return 1
	}

	embedder, err := buildEmbedder(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to create embeddings provider", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		slog.Error("failed to load corpus", "path", cfg.Corpus.Path, "err", err)
		return 1
	}
	slog.Info("corpus loaded", "path", cfg.Corpus.Path, "documents", len(docs))

	buildOpts := []index.BuildOption{index.WithLogger(progressLogger())}
	if cfg.Corpus.BatchSize > 0 {
		buildOpts = append(buildOpts, index.WithBatchSize(cfg.Corpus.BatchSize))
	}

	ix, err := index.Build(ctx, docs, embedder, buildOpts...)
	if err != nil {
		slog.Error("failed to build index", "err", err)
		return 1
	}

	if err := ix.Save(cfg.Corpus.IndexDir); err != nil {
		slog.Error("failed to persist index", "dir", cfg.Corpus.IndexDir, "err", err)
		return 1
	}
	slog.Info("index persisted", "dir", cfg.Corpus.IndexDir, "documents", ix.Len())
	return 0
}

// buildEmbedder creates the embeddings provider named in the config. Only the
// embeddings entry is consulted; the LLM and STT entries are server concerns.
func buildEmbedder(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	case "ollama":
		return ollamaembed.New(entry.BaseURL, entry.Model)
	case "":
		return nil, fmt.Errorf("providers.embeddings is not configured")
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", entry.Name)
	}
}

// progressLogger returns a debug-level logger so the per-batch progress lines
// from [index.Build] show up without a config flag.
func progressLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
