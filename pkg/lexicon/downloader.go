package lexicon

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultCEDICTURL is the MDBG export of CC-CEDICT.
const DefaultCEDICTURL = "https://www.mdbg.net/chinese/export/cedict/cedict_1_0_ts_utf-8_mdbg.txt.gz"

// Downloader fetches the gzip'd CC-CEDICT export.
type Downloader struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger
}

// NewDownloader returns a Downloader for url (DefaultCEDICTURL when empty).
func NewDownloader(url string, logger *slog.Logger) *Downloader {
	if url == "" {
		url = DefaultCEDICTURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		URL:    url,
		Client: &http.Client{Timeout: 2 * time.Minute},
		Logger: logger.With("component", "cedict_downloader"),
	}
}

// Ensure checks whether the dictionary exists at path. If not, it downloads
// and decompresses it.
func (d *Downloader) Ensure(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	d.Logger.Info("dictionary not found, downloading", "path", path, "url", d.URL)
	return d.downloadAndExtract(ctx, path)
}

func (d *Downloader) downloadAndExtract(ctx context.Context, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "zhreader-cli")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	// Write next to the destination and rename so a failed download never
	// leaves a truncated dictionary behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".cedict-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, gzReader)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("downloaded dictionary is empty")
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("failed to move dictionary into place: %w", err)
	}

	d.Logger.Info("dictionary downloaded", "path", destPath, "bytes", n)
	return nil
}
