package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/textutil"
)

const defaultAudioExtension = ".mp3"

// Downloader stages episode audio under the configured staging directory.
type Downloader struct {
	stagingDir string
	timeout    time.Duration
	http       *http.Client
	logger     *slog.Logger
}

// DownloadOption customizes a downloader.
type DownloadOption func(*Downloader)

// WithDownloadHTTPClient overrides the HTTP client used for audio fetches.
func WithDownloadHTTPClient(client *http.Client) DownloadOption {
	return func(d *Downloader) {
		if client != nil {
			d.http = client
		}
	}
}

// NewDownloader constructs a downloader from configuration.
func NewDownloader(cfg *config.Config, logger *slog.Logger, opts ...DownloadOption) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	downloader := &Downloader{
		stagingDir: cfg.Paths.StagingDir,
		timeout:    time.Duration(cfg.Workflow.DownloadTimeoutSeconds) * time.Second,
		http:       &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(downloader)
	}
	return downloader
}

// StagedPath returns where an episode's audio lands inside the staging
// directory: one subdirectory per podcast, file named by episode identifier
// with the source extension.
func (d *Downloader) StagedPath(episode Episode) string {
	name := episode.Identifier
	if strings.TrimSpace(name) == "" {
		name = episode.Title
	}
	ext := defaultAudioExtension
	if parsed, err := url.Parse(episode.AudioURL); err == nil {
		if found := path.Ext(parsed.Path); found != "" {
			ext = strings.ToLower(found)
		}
	}
	return filepath.Join(d.stagingDir,
		textutil.SanitizeFileName(episode.PodcastName),
		textutil.SanitizeFileName(name)+ext)
}

// Download fetches the episode's audio into the staging directory and returns
// the local path. Downloads are idempotent: an existing non-empty file is
// reused without touching the network. Partial downloads never land at the
// final path.
func (d *Downloader) Download(ctx context.Context, episode Episode) (string, error) {
	if strings.TrimSpace(episode.AudioURL) == "" {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			fmt.Sprintf("Episode %q has no audio URL", episode.Title), nil)
	}

	dest := d.StagedPath(episode)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		d.logger.Debug("audio already staged",
			logging.String("episode", episode.Identifier),
			logging.String("path", dest),
			logging.String("size", humanize.Bytes(uint64(info.Size()))),
		)
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			"Failed to create staging directory", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, episode.AudioURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			"Failed to build download request", err)
	}
	request.Header.Set("User-Agent", "podscribe")

	resp, err := d.http.Do(request)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			fmt.Sprintf("Failed to download %s", episode.AudioURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			fmt.Sprintf("Download of %s failed with status %s", episode.AudioURL, resp.Status), nil)
	}

	written, err := d.writePartial(dest, resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			"Failed to write staged audio", err)
	}

	d.logger.Info("audio downloaded",
		logging.String("episode", episode.Identifier),
		logging.String("path", dest),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Duration("elapsed", time.Since(start)),
	)
	return dest, nil
}

func (d *Downloader) writePartial(dest string, body io.Reader) (int64, error) {
	partial := dest + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}

	written, err := io.Copy(out, body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(partial)
		return 0, fmt.Errorf("stream audio: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("finalize download: %w", err)
	}
	return written, nil
}
