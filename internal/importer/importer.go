// Package importer moves completed movie downloads into the library:
// it locates the movie file inside the torrent's content, copies it into a
// per-movie directory, tags subtitles, and applies the post-import policy.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
	"github.com/magnetarr/magnetarr/pkg/nameparse"
)

var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".webm": true,
	".mov":  true,
}

const subtitleExtension = ".srt"

// TorrentManager is the slice of the download client the importer needs for
// its post-import policy.
type TorrentManager interface {
	DeleteTorrents(hashes []string, deleteFiles bool) error
	SetCategory(hashes []string, category string) error
}

// MovieLookup resolves TMDB ids to metadata for library naming.
type MovieLookup interface {
	FromTmdb(tmdbID uint64) (*models.MovieInfo, error)
}

// Options configures an Importer.
type Options struct {
	// RemoteDownloadPath and LocalDownloadPath map the download client's
	// view of the filesystem onto ours. Empty means paths are shared.
	RemoteDownloadPath string
	LocalDownloadPath  string
	// MoviesPath is the library root.
	MoviesPath string
	// MaxDepth bounds the movie-file search below the content path.
	MaxDepth int
	// SubtitleLanguages maps a language code to the filename pattern that
	// identifies subtitles in that language.
	SubtitleLanguages map[string]*regexp.Regexp
	// DeleteTorrent removes the torrent after import; DeleteFiles also
	// removes its data. CategoryAfterImport recategorizes instead when
	// DeleteTorrent is off.
	DeleteTorrent       bool
	DeleteFiles         bool
	CategoryAfterImport string
}

// Importer imports one completed torrent at a time.
type Importer struct {
	torrents TorrentManager
	movies   MovieLookup
	options  Options
	logger   logger.Logger
}

func New(torrents TorrentManager, movies MovieLookup, options Options, log logger.Logger) *Importer {
	if options.MaxDepth <= 0 {
		options.MaxDepth = 2
	}
	return &Importer{
		torrents: torrents,
		movies:   movies,
		options:  options,
		logger:   log,
	}
}

// Import copies the torrent's movie file and subtitles into the library and
// then applies the post-import policy.
func (i *Importer) Import(torrent models.ActiveTorrent) error {
	contentPath := filepath.Join(i.localPath(torrent.SavePath), torrent.Name)

	info, err := os.Stat(contentPath)
	if err != nil {
		return fmt.Errorf("failed to stat torrent content: %w", err)
	}
	if !info.IsDir() {
		return errors.NewTorrentIsFile(contentPath)
	}

	movieFile, err := i.findMovieFile(contentPath)
	if err != nil {
		return err
	}

	title := i.libraryTitle(torrent.Name)
	destDir := filepath.Join(i.options.MoviesPath, title)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	destFile := filepath.Join(destDir, title+filepath.Ext(movieFile))
	if err := copyFile(movieFile, destFile); err != nil {
		return err
	}
	i.logger.Infof("[importer] imported %s", destFile)

	if err := i.importSubtitles(contentPath, destDir, title); err != nil {
		i.logger.Warnf("[importer] subtitle import failed: %v", err)
	}

	return i.applyPostImportPolicy(torrent.Hash)
}

// localPath maps the download client's save path into our filesystem view.
func (i *Importer) localPath(savePath string) string {
	if i.options.RemoteDownloadPath == "" {
		return savePath
	}
	return filepath.Join(
		i.options.LocalDownloadPath,
		strings.TrimPrefix(savePath, i.options.RemoteDownloadPath))
}

// findMovieFile returns the largest video file within MaxDepth levels below
// the content root.
func (i *Importer) findMovieFile(root string) (string, error) {
	var best string
	var bestSize int64

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if depthBelow(root, path) > i.options.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.Size() > bestSize {
			best, bestSize = path, info.Size()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan torrent content: %w", err)
	}
	if best == "" {
		return "", errors.NewMovieFileNotFound(root)
	}
	return best, nil
}

// libraryTitle resolves the library directory name, preferring metadata
// looked up via a parenthesized TMDB hint in the release name.
func (i *Importer) libraryTitle(torrentName string) string {
	if hint := nameparse.ExtractTmdb(torrentName); hint != 0 && i.movies != nil {
		if movie, err := i.movies.FromTmdb(hint); err == nil && movie != nil && movie.Year != 0 {
			return movie.FormattedTitle()
		}
	}
	return torrentName
}

// importSubtitles copies top-level .srt files, tagging each with the first
// configured language whose pattern matches the filename.
func (i *Importer) importSubtitles(contentPath, destDir, title string) error {
	entries, err := os.ReadDir(contentPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != subtitleExtension {
			continue
		}

		destName := title + subtitleExtension
		for lang, pattern := range i.options.SubtitleLanguages {
			if pattern.MatchString(entry.Name()) {
				destName = title + "." + lang + subtitleExtension
				break
			}
		}

		src := filepath.Join(contentPath, entry.Name())
		if err := copyFile(src, filepath.Join(destDir, destName)); err != nil {
			return err
		}
	}
	return nil
}

func (i *Importer) applyPostImportPolicy(hash string) error {
	if i.options.DeleteTorrent {
		return i.torrents.DeleteTorrents([]string{hash}, i.options.DeleteFiles)
	}
	if i.options.CategoryAfterImport != "" {
		return i.torrents.SetCategory([]string{hash}, i.options.CategoryAfterImport)
	}
	return nil
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
