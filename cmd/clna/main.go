package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/davidvella/clna"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		infoCommand()
	case "verify":
		verifyCommand()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `clna - indexed clonotype alignment archive tool

Usage:
  clna <command> [options]

Commands:
  info    Print clone and alignment statistics for an archive
  verify  Check every alignment block for integrity

Examples:
  clna info --file run.clna
  clna verify --file run.clna --verbose

`)
}

func infoCommand() {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var (
		file    = fs.String("file", "", "Archive path (required)")
		blocks  = fs.Bool("blocks", false, "Print per-clone block statistics")
		verbose = fs.Bool("verbose", false, "Verbose logging")
	)
	fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Error: --file is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	r, err := clna.OpenReader(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open archive")
	}
	defer r.Close()

	total, err := r.TotalAlignments()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to scan alignment blocks")
	}

	stat, err := os.Stat(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to stat archive")
	}

	fmt.Printf("archive:    %s\n", *file)
	fmt.Printf("size:       %d bytes\n", stat.Size())
	fmt.Printf("clones:     %d\n", r.NumberOfClones())
	fmt.Printf("alignments: %d\n", total)

	if *blocks {
		boundaries := r.BlockBoundaries()
		for i := 0; i < r.NumberOfClones(); i++ {
			n, err := r.AlignmentCount(i)
			if err != nil {
				log.Fatal().Err(err).Int("clone", i).Msg("failed to scan block")
			}
			fmt.Printf("clone %6d: %8d alignments, %8d bytes\n",
				i, n, boundaries[i+1]-boundaries[i])
		}
	}
}

func verifyCommand() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		file    = fs.String("file", "", "Archive path (required)")
		verbose = fs.Bool("verbose", false, "Verbose logging")
	)
	fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Error: --file is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	r, err := clna.OpenReader(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open archive")
	}
	defer r.Close()

	start := time.Now()
	if err := r.Verify(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("verification failed")
	}

	log.Info().
		Int("clones", r.NumberOfClones()).
		Dur("elapsed", time.Since(start)).
		Msg("archive verified")
}
