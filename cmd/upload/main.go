package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/batch-etl/internal/app"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/ingress"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/objectstore"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		configPath string
		filePath   string
		target     string
		notifyURL  string
	)

	flag.StringVar(&configPath, "config", os.Getenv("BATCH_ETL_CONFIG"), "Path to YAML config file (or set BATCH_ETL_CONFIG env)")
	flag.StringVar(&filePath, "file", "", "Path to local file (required)")
	flag.StringVar(&target, "to", "", "Destination URI, e.g. gs://bucket/uploads/ or s3://bucket/uploads/data.json (required)")
	flag.StringVar(&notifyURL, "notify", "", "Ingress events endpoint to POST the object-created event to (optional)")
	flag.Parse()

	if filePath == "" || target == "" {
		log.Fatal().Msg("Usage: upload -file /path/to/data.json -to gs://BUCKET/PREFIX/ [-notify http://localhost:8080/events]")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dest, err := objectstore.ParseURI(target)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid destination")
	}
	if dest.Key == "" || dest.Key[len(dest.Key)-1] == '/' {
		dest.Key += filepath.Base(filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg.Storage.Scheme = dest.Scheme
	stores, closeStores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object store")
	}
	defer closeStores()

	log.Info().
		Str("file", filePath).
		Str("destination", dest.String()).
		Msg("Uploading file")

	if err := stores.Put(ctx, dest, data, contentType(filePath)); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	fmt.Printf("Uploaded %s to %s\n", filePath, dest)

	if notifyURL == "" {
		return
	}
	body, err := notify(ctx, notifyURL, ingress.NewEvent(dest.Bucket, dest.Key))
	if err != nil {
		log.Fatal().Err(err).Msg("Notification failed")
	}
	fmt.Println(string(body))
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// notify posts event to url and returns the response body.
func notify(ctx context.Context, url string, event ingress.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("ingress returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
