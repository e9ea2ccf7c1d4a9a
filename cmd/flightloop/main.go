// Command flightloop runs the compiled-in cycle profile over every default
// kernel variant and prints one line per cycle.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sbl8/flightloop/config"
	"github.com/sbl8/flightloop/harness"
	"github.com/sbl8/flightloop/kernels"
	"github.com/sbl8/flightloop/report"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.InfoLevel)

	printer := report.NewPrinter(os.Stdout)
	opts := harness.DefaultOptions()
	opts.Observers = []harness.Observer{printer}

	h, err := harness.NewHarness(config.Default(), &opts)
	if err != nil {
		logrus.Fatalf("Failed to create harness: %v", err)
	}

	if _, err := h.RunAll(kernels.DefaultVariants()); err != nil {
		logrus.Fatalf("Run failed: %v", err)
	}
	if err := printer.Err(); err != nil {
		logrus.Fatalf("Failed to write report: %v", err)
	}
}
