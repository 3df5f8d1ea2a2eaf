package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"thread-summary-bot/internal/app"
	"thread-summary-bot/internal/infra/config"
)

func main() {
	var (
		key    string
		format string
		out    string
	)
	flag.StringVar(&key, "key", "", "Object key of the summary document, e.g. summaries/2024-01-15/C1_1700000000_000100.md")
	flag.StringVar(&format, "format", "md", "Output format: md or html")
	flag.StringVar(&out, "out", "", "Write to file instead of stdout")
	flag.Parse()

	if key == "" {
		log.Fatal().Msg("archive-fetch: object key is required (-key)")
	}
	if format != "md" && format != "html" {
		log.Fatal().Str("format", format).Msg("archive-fetch: unsupported format")
	}

	cfg := config.Load()
	if cfg.AWS.S3Bucket == "" {
		log.Fatal().Msg("archive-fetch: S3_BUCKET_NAME environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := app.NewArchive(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("archive-fetch: failed to init archive")
	}
	doc, err := sink.Fetch(ctx, key)
	if err != nil {
		log.Fatal().Err(err).Str("key", key).Msg("archive-fetch: failed to fetch document")
	}

	body := []byte(doc)
	if format == "html" {
		body, err = renderHTML(doc)
		if err != nil {
			log.Fatal().Err(err).Msg("archive-fetch: failed to render markdown")
		}
	}

	if out == "" {
		_, _ = os.Stdout.Write(body)
		return
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("archive-fetch: failed to write file")
	}
	fmt.Printf("Saved %q (%d bytes) to %s\n", key, len(body), out)
}

func renderHTML(markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
