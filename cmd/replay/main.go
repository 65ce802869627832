package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/processor"
	"jupiter-dex-sol/internal/logic/replay"
	"jupiter-dex-sol/pkg/logger"
)

var (
	input    = flag.String("i", "", "length-delimited SubscribeUpdateBlock file")
	output   = flag.String("o", "", "output file, stdout if empty")
	format   = flag.String("format", replay.FormatJSON, "output format: json | bin")
	workers  = flag.Int("workers", consts.CpuCount, "blocks processed concurrently")
	logLevel = flag.String("log-level", "warn", "debug | info | warn | error")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		logger.Errorf("[replay] %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	if *input == "" {
		return fmt.Errorf("-i is required")
	}
	if err := logger.InitLogger(logger.LogOption{Format: "console", Level: *logLevel, Stderr: true}); err != nil {
		return err
	}

	f, err := os.Open(*input)
	if err != nil {
		return err
	}
	defer f.Close()

	blocks, err := replay.ReadBlocks(f)
	if err != nil {
		return err
	}

	var observer core.Observer = core.NopObserver{}
	if *logLevel == "debug" {
		observer = processor.LogObserver{}
	}
	results := processor.NewProcessor(processor.WithObserver(observer)).ProcessBlocks(blocks, *workers)

	out := os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	failed, err := replay.WriteResults(w, results, *format)
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Infof("[replay] processed %d blocks, %d failed", len(blocks), failed)
	return nil
}
