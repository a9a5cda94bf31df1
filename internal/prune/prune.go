package prune

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podscribe/internal/logging"
)

// audioExtensions lists the file types the downloader can stage, plus the
// intermediate WAV an interrupted transcription may leave behind.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".flac": {},
	".wav":  {},
}

// Entry describes one staged audio file considered by a sweep.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SweepError pairs a path with the error that prevented its removal.
type SweepError struct {
	Path string
	Err  error
}

// Result contains the outcome of a retention sweep. In a dry run Deleted
// holds the files that would have been removed.
type Result struct {
	Deleted  []Entry
	Retained int
	Errors   []SweepError
}

// Freed returns the total bytes reclaimed by the sweep (or reclaimable,
// for a dry run).
func (r Result) Freed() uint64 {
	var total uint64
	for _, entry := range r.Deleted {
		total += uint64(entry.Size)
	}
	return total
}

// Sweep removes staged audio files older than maxAge from the staging tree
// and clears out podcast subdirectories the deletions left empty. A maxAge
// <= 0 means retention is disabled and the sweep is a no-op. Files are
// evaluated oldest first so a canceled sweep reclaims the most space.
func Sweep(ctx context.Context, stagingDir string, maxAge time.Duration, dryRun bool, logger *slog.Logger) Result {
	result := Result{}
	logger = logging.NewComponentLogger(logger, "prune")

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" || maxAge <= 0 {
		return result
	}

	files, err := listAudioFiles(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: stagingDir, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if !file.ModTime.Before(cutoff) {
			result.Retained++
			continue
		}
		if dryRun {
			logger.Info("would remove staged audio",
				logging.String("path", file.Path),
				logging.Duration("age", time.Since(file.ModTime)),
			)
			result.Deleted = append(result.Deleted, file)
			continue
		}
		if err := os.Remove(file.Path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: file.Path, Err: err})
			logger.Warn("failed to remove staged audio",
				logging.String("path", file.Path),
				logging.Error(err),
			)
			continue
		}
		logger.Info("removed staged audio",
			logging.String("path", file.Path),
			logging.Duration("age", time.Since(file.ModTime)),
		)
		result.Deleted = append(result.Deleted, file)
	}

	if !dryRun && len(result.Deleted) > 0 {
		removeEmptyDirs(stagingDir, logger)
	}

	return result
}

// listAudioFiles walks the staging tree and returns staged audio sorted
// oldest first.
func listAudioFiles(stagingDir string) ([]Entry, error) {
	var files []Entry
	err := filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == stagingDir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.Before(files[j].ModTime) })
	return files, nil
}

// removeEmptyDirs clears podcast subdirectories emptied by the sweep. The
// staging root itself is never removed.
func removeEmptyDirs(stagingDir string, logger *slog.Logger) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		contents, err := os.ReadDir(dirPath)
		if err != nil || len(contents) > 0 {
			continue
		}
		if err := os.Remove(dirPath); err == nil {
			logger.Info("removed empty staging directory", logging.String("path", dirPath))
		}
	}
}
