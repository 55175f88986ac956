package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"faceswap/internal/batch"
	"faceswap/internal/config"
	"faceswap/internal/history"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: faceswap-batch [flags] <tasks.csv>

Task list format:
  face_image,target_image,output
  /path/to/face1.jpg,/path/to/target1.jpg,/path/to/output1.jpg
  /path/to/face2.jpg,/path/to/target2.jpg,/path/to/output2.jpg

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML batch config file")
	historyPath := flag.String("history", "", "override the run history database path")
	noHistory := flag.Bool("no-history", false, "disable run history recording")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	taskListPath := flag.Arg(0)

	cfg, err := config.LoadBatchConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *historyPath != "" {
		cfg.HistoryPath = *historyPath
	}

	var recorder batch.Recorder
	if !*noHistory {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: open run history %s: %v\n", cfg.HistoryPath, err)
		} else {
			defer store.Close()
			recorder = store
		}
	}

	runner := batch.NewRunner(cfg, recorder, os.Stdout)
	summary, err := runner.Run(context.Background(), taskListPath)
	if err != nil {
		// Fatal setup failure: no job was attempted.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total: %d\n", summary.Total)
	fmt.Printf("Successful: %d\n", summary.Succeeded)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("============================================================")
}
