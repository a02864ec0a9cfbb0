// Package main writes a generated sample book CSV.
//
// The output imports cleanly into a sheet and is useful for exercising
// pagination and search with a realistic volume of rows.
//
// Usage:
//
//	go run ./cmd/seed -count 5000 -out books.csv
//	go run ./cmd/seed -seed 42 > books.csv
package main

import (
	"bufio"
	"flag"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/booksheet/booksheet-server/internal/bookcsv"
	"github.com/booksheet/booksheet-server/internal/generator"
	"github.com/booksheet/booksheet-server/internal/logger"
	"github.com/booksheet/booksheet-server/internal/sheet"
)

var (
	count = flag.Int("count", 10000, "Number of books to generate")
	out   = flag.String("out", "", "Output file (default: stdout)")
	seed  = flag.Uint64("seed", 0, "Random seed; 0 picks one at random")
)

func main() {
	flag.Parse()

	// Logs go to stderr so stdout stays pure CSV.
	log := logger.New(logger.Config{Writer: os.Stderr, Level: logger.ParseLevel("info")})

	if *count <= 0 {
		log.Fatalf("count must be positive, got %d", *count)
	}

	rng := generator.NewRand()
	if *seed != 0 {
		rng = rand.New(rand.NewPCG(*seed, *seed))
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.WithError(err).Fatal("Failed to create output file", "path", *out)
		}
		defer f.Close()
		w = f
	}

	start := time.Now()
	bw := bufio.NewWriter(w)
	records := sheet.Normalize(generator.Generate(*count, rng))
	if err := bookcsv.Write(bw, records); err != nil {
		log.WithError(err).Fatal("Failed to write csv")
	}
	if err := bw.Flush(); err != nil {
		log.WithError(err).Fatal("Failed to flush csv")
	}

	log.WithDuration(start).Info("Sample books written", "path", *out, "rows", len(records))
}
