package codeset

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// reservedList implements Reserved over the union of several sets.
// The sets are read-only after construction.
type reservedList struct {
	sets []Set
}

// NewReserved loads every path concurrently and returns their union.
// Any load failure aborts construction.
func NewReserved(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (Reserved, error) {
	logger = logger.With().Str("component", "reserved-codes").Logger()

	type loadResult struct {
		index int
		set   Set
		err   error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			set, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, set: set, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	list := &reservedList{sets: make([]Set, 0, len(paths))}
	total := 0
	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("failed to load reserved codes %s: %w", paths[i], result.err)
		}
		list.sets = append(list.sets, result.set)
		total += result.set.Size()
	}

	logger.Info().
		Int("file_count", len(paths)).
		Int("total_codes", total).
		Msg("reserved codes loaded")

	return list, nil
}

// NewReservedFromSets wraps already-built sets.
func NewReservedFromSets(sets ...Set) Reserved {
	return &reservedList{sets: sets}
}

// IsReserved reports whether any loaded set contains code.
func (r *reservedList) IsReserved(code string) bool {
	for _, s := range r.sets {
		if s.Contains(code) {
			return true
		}
	}
	return false
}
