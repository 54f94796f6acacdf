// Command quizdoc extracts pages from a local document or uploads it to the
// analysis backend in chunks.
//
//	quizdoc extract [-page N] [-lines N] <file>
//	quizdoc upload [-mode analysis|file_id] [-chunk BYTES] <file>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/config"
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/upload"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "extract":
		err = runExtract(cfg, os.Args[2:])
	case "upload":
		err = runUpload(ctx, cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "quizdoc %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quizdoc extract [-page N] [-lines N] <file>")
	fmt.Fprintln(os.Stderr, "       quizdoc upload [-mode analysis|file_id] [-chunk BYTES] <file>")
}

func runExtract(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	page := fs.Int("page", 0, "print only this page (1-based)")
	lines := fs.Int("lines", cfg.LinesPerPage, "lines per page for formats without pages")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one file, got %d", fs.NArg())
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ws := parser.NewWorkspace(parser.Options{
		LineHeight:        cfg.LineHeight,
		LinesPerPage:      *lines,
		StrictPDF:         cfg.StrictPDF,
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
	})
	defer ws.Close()

	pages, err := ws.Load(data, filepath.Base(path))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *page > 0 {
		if *page > len(pages) {
			return fmt.Errorf("page %d out of range (1-%d)", *page, len(pages))
		}
		return enc.Encode(pages[*page-1])
	}
	return enc.Encode(pages)
}

func runUpload(ctx context.Context, cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	mode := fs.String("mode", cfg.FinalizeMode, "finalize response to expect: analysis or file_id")
	chunk := fs.Int64("chunk", cfg.UploadChunkBytes, "chunk size in bytes")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one file, got %d", fs.NArg())
	}
	path := fs.Arg(0)

	m, err := upload.ParseMode(*mode)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout, nil)
	defer client.Close()

	mgr := upload.NewManager(client, upload.Options{ChunkSize: *chunk, Mode: m, Logger: log})
	res, err := mgr.Upload(ctx, upload.File{Name: filepath.Base(path), Data: data}, func(pct int) {
		fmt.Fprintf(os.Stderr, "\ruploading %s: %3d%%", filepath.Base(path), pct)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	if m == upload.ModeFileID {
		analysis, err := client.GetAnalysis(ctx, res.FileID)
		if err != nil {
			return fmt.Errorf("uploaded as %s but fetching analysis failed: %w", res.FileID, err)
		}
		res.Analysis = analysis
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
