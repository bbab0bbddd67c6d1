package codeset

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// initialCapacity sizes a new set for a typical retired campaign.
const initialCapacity = 4096

// fileLoader implements Loader for gzipped files on the local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "codeset-loader").Logger(),
	}
}

// Load reads a gzipped code file from disk.
func (l *fileLoader) Load(ctx context.Context, path string) (Set, error) {
	l.logger.Info().Str("file", path).Msg("loading reserved code file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open code file")
		return nil, fmt.Errorf("failed to open code file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readGzipped(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read code file")
		return nil, fmt.Errorf("failed to read code file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("codes_loaded", set.Size()).
		Msg("reserved code file loaded")

	return set, nil
}

// readGzipped parses one code per line from a gzip stream. Lines are
// trimmed, upper-cased and blank lines skipped.
func readGzipped(ctx context.Context, r io.Reader) (*mapSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := NewMapSet(initialCapacity)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		if lineCount%100_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		set.Add(scanner.Text())
		lineCount++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning codes: %w", err)
	}

	return set, nil
}
