package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/docquery/internal/cli"
	"github.com/kailas-cloud/docquery/internal/metrics"
)

func main() {
	metrics.RegisterSearchMetrics()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
