// Command fetch downloads Pandora L2 files for every station listed in a
// locations file. Existing files are skipped, so re-running it only picks up
// new or previously failed downloads.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pandonia-tools/pandora-cf-merge/internal/config"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
)

// location is one station entry in the locations file. Entries without a
// pandora_url carry stations with no published L2 product and are skipped.
type location struct {
	Name string `json:"name"`
	URL  string `json:"pandora_url"`
}

func main() {
	var (
		locations = flag.String("locations", "PANDORA_Locations.json", "station list with pandora_url entries")
		dir       = flag.String("dir", "obs", "directory to download observation files into")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *locations, *dir); err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, locationsPath, dir string) error {
	data, err := os.ReadFile(locationsPath)
	if err != nil {
		return fmt.Errorf("read locations file: %w", err)
	}
	var stations []location
	if err := json.Unmarshal(data, &stations); err != nil {
		return fmt.Errorf("parse locations file: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	downloaded, skipped, failed := 0, 0, 0

	for _, st := range stations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.URL == "" {
			continue
		}

		name, err := fileName(st.URL)
		if err != nil {
			logger.Warn("unusable pandora_url, skipping", "station", st.Name, "url", st.URL, "error", err)
			failed++
			continue
		}
		dest := filepath.Join(dir, name)

		if _, err := os.Stat(dest); err == nil {
			logger.Debug("file exists, skipping", "path", dest)
			skipped++
			continue
		}

		logger.Info("downloading", "station", st.Name, "url", st.URL)
		if err := download(ctx, client, st.URL, dest); err != nil {
			// One unreachable station must not abort the rest.
			logger.Warn("download failed, skipping", "station", st.Name, "error", err)
			failed++
			continue
		}
		downloaded++
	}

	logger.Info("fetch complete", "downloaded", downloaded, "skipped", skipped, "failed", failed)
	return nil
}

// fileName extracts the last path element of the download URL.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in %q", rawURL)
	}
	return name, nil
}

// download streams the URL into dest via a temp file so an interrupted
// transfer never leaves a truncated observation file behind.
func download(ctx context.Context, client *http.Client, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
