package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Sample blocklists for local runs. Generated and operator-chosen codes that
// appear in any of these files are rejected.
var sampleFiles = map[string][]string{
	"retired-2024.gz": {
		"SUMMER2024",
		"WINTER2024",
		"SPRING2024",
		"EARLYBIRD",
	},
	"partner-codes.gz": {
		"AIRLINE10",
		"CARHIRE15",
		"LOYALTY20",
	},
	"offensive.gz": {
		"BADW0RD1",
		"RUDEC0DE",
	},
}

func main() {
	dataDir := flag.String("dir", "data/reserved-codes", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	paths := make([]string, 0, len(sampleFiles))
	for filename, codes := range sampleFiles {
		filePath := filepath.Join(*dataDir, filename)

		if err := writeCodeFile(filePath, codes); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d codes\n", filePath, len(codes))
		paths = append(paths, filePath)
	}

	fmt.Println("\nReserved code files created. Enable them with:")
	fmt.Printf("  PROMO_RESERVED_CODE_FILES=%s\n", strings.Join(paths, ","))
}

func writeCodeFile(filePath string, codes []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, code := range codes {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", code); err != nil {
			return fmt.Errorf("failed to write code: %w", err)
		}
	}

	return nil
}
