package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ironsheep/pnid-topology/internal/config"
	"github.com/ironsheep/pnid-topology/internal/httpapi"
	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/ingest"
	"github.com/ironsheep/pnid-topology/internal/metrics"
	"github.com/ironsheep/pnid-topology/internal/ocr"
	"github.com/ironsheep/pnid-topology/internal/pipeline"
	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/prompt"
	"github.com/ironsheep/pnid-topology/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `pnid-topology - deterministic pipe connectivity for P&ID sheets

Usage:
  pnid-topology infer --image SHEET --components FILE [options]
  pnid-topology mcp [--config FILE]
  pnid-topology serve [--config FILE] [--addr ADDR]
  pnid-topology version

With no command the MCP server runs on stdin/stdout.

Infer options:
  --image FILE              Diagram image (PNG, JPEG, GIF, BMP, TIFF, WebP)
  --components FILE         Component JSON
  --components-format NAME  auto, pnid or list (default auto)
  --ocr FILE                OCR items JSON
  --ocr-tesseract           Recognize labels with Tesseract instead of --ocr
  --out FILE                Write the document here instead of stdout
  --prompt FILE             Also write an annotation prompt
  --top-n N                 Pipes listed in the prompt (default 10)
  --include-pixels          Keep pipe pixel traces in the output
  --config FILE             YAML configuration

Environment variables:
  PNID_LOG_LEVEL=debug      Enable debug logging
  PNID_*                    Override any configuration value (see config)
`

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "mcp"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "pnid-topology %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		if v := ocr.Version(); v != "" {
			fmt.Fprintf(stdout, "  Tesseract:  %s\n", v)
		}
		return nil
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return nil
	case "infer":
		return runInfer(ctx, args, stdout)
	case "mcp":
		return runMCP(ctx, args)
	case "serve":
		return runServe(ctx, args)
	default:
		return fmt.Errorf("unknown command %q (see --help)", cmd)
	}
}

type inferFlags struct {
	config           string
	image            string
	components       string
	componentsFormat string
	ocrPath          string
	ocrTesseract     bool
	out              string
	prompt           string
	topN             int
	includePixels    bool
}

func parseInferFlags(args []string) (inferFlags, error) {
	var f inferFlags
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.image, "image", "", "diagram image")
	fs.StringVar(&f.components, "components", "", "component JSON file")
	fs.StringVar(&f.componentsFormat, "components-format", "auto", "auto, pnid or list")
	fs.StringVar(&f.ocrPath, "ocr", "", "OCR items JSON file")
	fs.BoolVar(&f.ocrTesseract, "ocr-tesseract", false, "recognize labels with Tesseract")
	fs.StringVar(&f.out, "out", "", "output file (default stdout)")
	fs.StringVar(&f.prompt, "prompt", "", "write an annotation prompt to this file")
	fs.IntVar(&f.topN, "top-n", prompt.DefaultTopN, "pipes listed in the prompt")
	fs.BoolVar(&f.includePixels, "include-pixels", false, "keep pipe pixel traces")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	switch {
	case f.image == "":
		return f, errors.New("--image is required")
	case f.components == "":
		return f, errors.New("--components is required")
	case f.ocrPath != "" && f.ocrTesseract:
		return f, errors.New("--ocr and --ocr-tesseract are mutually exclusive")
	}
	return f, nil
}

func runInfer(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseInferFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}

	img, err := loadImage(f.image)
	if err != nil {
		return err
	}
	components, err := readComponents(f.components, f.componentsFormat)
	if err != nil {
		return err
	}
	if err := pipeline.ValidateComponents(components); err != nil {
		return err
	}
	items, err := readItems(ctx, f, cfg, img)
	if err != nil {
		return err
	}

	doc, err := pipeline.New(cfg, nil).Run(ctx, img, components, items)
	if err != nil {
		return err
	}

	if f.prompt != "" {
		if err := os.WriteFile(f.prompt, []byte(prompt.Format(doc, f.topN)), 0o644); err != nil {
			return fmt.Errorf("failed to write prompt: %w", err)
		}
	}
	if !f.includePixels {
		doc.DropPixels()
	}
	return writeDocument(doc, f.out, stdout)
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	return imaging.Decode(file)
}

func readComponents(path, formatName string) ([]pnid.Component, error) {
	format, err := ingest.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open components: %w", err)
	}
	defer file.Close()
	return ingest.ReadComponents(file, format)
}

func readItems(ctx context.Context, f inferFlags, cfg config.Config, img image.Image) ([]pnid.OCRItem, error) {
	switch {
	case f.ocrTesseract:
		return ocr.Extract(ctx, img, ocr.Options{
			Language:      cfg.OCRLanguage,
			MinConfidence: cfg.OCRMinConfidence,
		})
	case f.ocrPath != "":
		file, err := os.Open(f.ocrPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open OCR items: %w", err)
		}
		defer file.Close()
		return ingest.ReadOCR(file)
	}
	return nil, nil
}

func writeDocument(doc *pnid.Document, path string, stdout io.Writer) error {
	w := stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func loadConfig(name string, args []string, extra func(*flag.FlagSet)) (config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML configuration file")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return config.Load(*path)
}

func runMCP(ctx context.Context, args []string) error {
	cfg, err := loadConfig("mcp", args, nil)
	if err != nil {
		return err
	}
	if cfg.Debug() {
		log.Printf("pnid-topology MCP server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New(pipeline.New(cfg, nil), Version)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	var addr string
	cfg, err := loadConfig("serve", args, func(fs *flag.FlagSet) {
		fs.StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	})
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	p := pipeline.New(cfg, metrics.New(reg))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(p, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("pnid-topology v%s listening on %s", Version, cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
