package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-ocr-mcp/internal/config"
	"github.com/ironsheep/image-ocr-mcp/internal/imaging"
	"github.com/ironsheep/image-ocr-mcp/internal/logging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr/engine"
	"github.com/ironsheep/image-ocr-mcp/internal/server"
	"github.com/ironsheep/image-ocr-mcp/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const envFile = ".env"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-ocr-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "image-ocr-mcp: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("image-ocr-mcp - MCP server for extracting text from an image")
	fmt.Println()
	fmt.Println("Usage: image-ocr-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  IMAGE_OCR_LOG_LEVEL=info          Log level (debug, info, warn, error)")
	fmt.Println("  IMAGE_OCR_ENGINE=tesseract        Recognition engine (tesseract, ollama)")
	fmt.Println("  IMAGE_OCR_LANGUAGE=eng            Tesseract language code")
	fmt.Println("  IMAGE_OCR_TESSDATA_PREFIX=        Tessdata directory override")
	fmt.Println("  IMAGE_OCR_OLLAMA_URL=http://localhost:11434")
	fmt.Println("  IMAGE_OCR_OLLAMA_MODEL=llama3.2-vision")
	fmt.Println("  IMAGE_OCR_PREPROCESS=false        Normalize images before recognition")
	fmt.Println("  IMAGE_OCR_MAX_IMAGE_BYTES=33554432")
	fmt.Println("  IMAGE_OCR_WAIT_TIMEOUT_SECONDS=60 Longest ocr_extract_text wait")
	fmt.Println("  IMAGE_OCR_OLLAMA_TIMEOUT_SECONDS=300")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func run() error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	// stdout is for the MCP protocol
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("image OCR MCP server starting")

	eng, info, err := engine.New(cfg, logging.Component(logger, "engine"))
	if err != nil {
		return fmt.Errorf("failed to start recognition engine: %w", err)
	}
	defer eng.Close()

	store := imaging.NewStore()
	sess := session.New(eng,
		session.AllocatorFunc(func(data []byte) session.Handle { return store.Create(data) }),
		session.WithLanguage(cfg.Language),
		session.WithLogger(logging.Component(logger, "session")),
	)

	srv := server.New(server.Config{
		Session:       sess,
		Store:         store,
		Engine:        info,
		MaxImageBytes: cfg.MaxImageBytes,
		MaxWait:       cfg.MaxWait,
		Logger:        logging.Component(logger, "server"),
		Version:       Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx, os.Stdin, os.Stdout) }()

	var runErr error
	select {
	case runErr = <-errc:
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	if err := sess.Close(); err != nil {
		logger.WithError(err).Warn("session teardown failed")
	}
	if live := store.Live(); live != 0 {
		logger.WithField("live", live).Warn("image handles still live at exit")
		store.Clear()
	}
	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	return nil
}
