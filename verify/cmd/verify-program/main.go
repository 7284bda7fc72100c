package main

import (
	"log"
	"os"

	"github.com/sarchlab/pipesim/config"
	"github.com/sarchlab/pipesim/program"
	"github.com/sarchlab/pipesim/verify"
)

// main runs lint, the functional simulator and every predictor on a program
func main() {
	sourcePath := os.Getenv("PIPESIM_PROGRAM")
	if len(os.Args) > 1 {
		sourcePath = os.Args[1]
	}

	if sourcePath == "" {
		log.Fatal("usage: verify-program source.asm (or set PIPESIM_PROGRAM)")
	}

	img, err := program.AssembleFile(sourcePath)
	if err != nil {
		log.Fatalf("Failed to assemble %s: %v", sourcePath, err)
	}

	cfg := config.Default()
	if path := os.Getenv("PIPESIM_CONFIG"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
	}

	report := verify.GenerateReport(img, cfg, 1_000_000)
	report.WriteReport(os.Stdout)

	if out := os.Getenv("PIPESIM_REPORT"); out != "" {
		if err := report.SaveReportToFile(out); err != nil {
			log.Fatal(err)
		}
	}

	if len(report.StructIssues) > 0 {
		log.Fatalf("Verification failed with %d STRUCT issues", len(report.StructIssues))
	}

	if !report.Passed() {
		log.Fatal("Pipeline does not match the functional reference")
	}
}
