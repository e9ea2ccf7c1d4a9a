// Command loopverify checks every kernel variant against the float64 reference
// transform and exits non-zero on an unexplained mismatch.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sbl8/flightloop/config"
	"github.com/sbl8/flightloop/core"
	"github.com/sbl8/flightloop/kernels"
)

func main() {
	var (
		points    = flag.Int("points", config.DefaultPoints, "Number of seeded sensor points")
		tolerance = flag.Float64("tolerance", kernels.DefaultTolerance, "Relative error tolerance")
		variants  = flag.String("variants", "", "Comma-separated variants (default: all)")
		verbose   = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	selected := kernels.Variants()
	if *variants != "" {
		vs, err := kernels.ParseVariants(strings.Split(*variants, ","))
		if err != nil {
			logrus.Fatalf("Invalid variant selection: %v", err)
		}
		selected = vs
	}

	src, err := core.SeedSensorBatch(*points)
	if err != nil {
		logrus.Fatalf("Failed to seed batch: %v", err)
	}
	m := core.NewTransformMatrix()
	logrus.Debugf("Verifying %d variants over %d points (max component %.3f)",
		len(selected), src.Len(), src.MaxComponent())

	findings, err := kernels.Verify(src, &m, *tolerance, selected...)
	if err != nil {
		logrus.Fatalf("Verification failed: %v", err)
	}

	failed := 0
	fmt.Printf("%-12s %-14s %12s %12s  %s\n", "variant", "deviation", "max abs", "max rel", "result")
	for _, f := range findings {
		result := "ok"
		switch {
		case f.OK:
		case f.Expected:
			result = "expected deviation"
		default:
			result = fmt.Sprintf("MISMATCH at point %d", f.WorstIndex)
			failed++
		}
		fmt.Printf("%-12s %-14s %12.3e %12.3e  %s\n",
			f.Variant, f.Deviation, f.MaxAbsErr, f.MaxRelErr, result)
	}

	if failed > 0 {
		logrus.Errorf("%d variant(s) disagree with the reference transform", failed)
		os.Exit(1)
	}
}
