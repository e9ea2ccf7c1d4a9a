// Command loopperf compares kernel variants under a cycle profile and exports
// the results.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sbl8/flightloop/config"
	"github.com/sbl8/flightloop/core"
	"github.com/sbl8/flightloop/harness"
	"github.com/sbl8/flightloop/kernels"
	"github.com/sbl8/flightloop/report"
)

var (
	profilePath = flag.String("profile", "", "YAML profile overriding the compiled-in constants")
	variantList = flag.String("variants", "", "Comma-separated variants (default: profile list, else all clamp-honoring variants)")
	yamlPath    = flag.String("yaml", "", "Write a YAML snapshot of every run")
	xlsxPath    = flag.String("xlsx", "", "Write an XLSX workbook of every run")
	plotPath    = flag.String("plot", "", "Write a PNG chart of cycle totals")
	metricsPath = flag.String("metrics", "", "Write Prometheus metrics in textfile format")
	calibrate   = flag.Int("calibrate", 0, "Clock calibration samples (0 skips calibration)")
	workers     = flag.Int("workers", 0, "Workers for the parallel variant (0 = GOMAXPROCS)")
	quiet       = flag.Bool("quiet", false, "Suppress per-cycle lines")
	verbose     = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.InfoLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	profile := config.Default()
	if *profilePath != "" {
		p, err := config.Load(*profilePath)
		if err != nil {
			logrus.Fatalf("Failed to load profile: %v", err)
		}
		profile = p
	}

	variants, err := selectVariants(*variantList, profile.Variants)
	if err != nil {
		logrus.Fatalf("Invalid variant selection: %v", err)
	}
	kernels.SetWorkers(*workers)

	fmt.Printf("Flight Loop Performance Comparison\n")
	fmt.Printf("==================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Parallel Workers: %d\n", kernels.Workers())
	fmt.Printf("Working Set: %d bytes\n", core.Footprint(profile.Points))
	fmt.Printf("Variants: %s\n", joinVariants(variants))
	fmt.Printf("\n")

	if *calibrate > 0 {
		cal := harness.Calibrate(harness.SystemClock{}, *calibrate)
		fmt.Printf("Clock Read: min %v | mean %v | max %v over %d samples\n",
			cal.Min, cal.Mean, cal.Max, cal.Samples)
		fmt.Printf("Reference Loop: %v (sum %d)\n\n", cal.Workload, cal.Checksum)
	}

	rec := &report.Recorder{}
	opts := harness.DefaultOptions()
	opts.Observers = []harness.Observer{rec}
	if !*quiet {
		opts.Observers = append(opts.Observers, report.NewPrinter(os.Stdout))
	}

	reg := prometheus.NewRegistry()
	if *metricsPath != "" {
		m, err := harness.NewMetricsObserver(reg)
		if err != nil {
			logrus.Fatalf("Failed to set up metrics: %v", err)
		}
		opts.Observers = append(opts.Observers, m)
	}

	h, err := harness.NewHarness(profile, &opts)
	if err != nil {
		logrus.Fatalf("Failed to create harness: %v", err)
	}

	sums, err := h.RunAll(variants)
	if err != nil {
		logrus.Fatalf("Run failed: %v", err)
	}
	printComparison(sums)

	runs := rec.Runs()
	if *yamlPath != "" {
		if err := writeYAMLFile(*yamlPath, runs); err != nil {
			logrus.Fatalf("Failed to write YAML: %v", err)
		}
		logrus.Infof("Wrote snapshot to %s", *yamlPath)
	}
	if *xlsxPath != "" {
		if err := report.WriteWorkbook(*xlsxPath, runs); err != nil {
			logrus.Fatalf("Failed to write workbook: %v", err)
		}
		logrus.Infof("Wrote workbook to %s", *xlsxPath)
	}
	if *plotPath != "" {
		if err := report.WritePlot(*plotPath, runs); err != nil {
			logrus.Fatalf("Failed to write plot: %v", err)
		}
		logrus.Infof("Wrote chart to %s", *plotPath)
	}
	if *metricsPath != "" {
		if err := prometheus.WriteToTextfile(*metricsPath, reg); err != nil {
			logrus.Fatalf("Failed to write metrics: %v", err)
		}
		logrus.Infof("Wrote metrics to %s", *metricsPath)
	}
}

func selectVariants(flagList string, profileList []string) ([]kernels.Variant, error) {
	if flagList != "" {
		return kernels.ParseVariants(strings.Split(flagList, ","))
	}
	if len(profileList) > 0 {
		return kernels.ParseVariants(profileList)
	}
	return kernels.DefaultVariants(), nil
}

func joinVariants(vs []kernels.Variant) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}

func printComparison(sums []harness.Summary) {
	fmt.Printf("Comparison\n")
	fmt.Printf("----------\n")
	fmt.Printf("%-12s %8s %8s %12s %12s %12s\n", "variant", "met", "missed", "mean (ms)", "max (ms)", "worst (ms)")
	for _, s := range sums {
		fmt.Printf("%-12s %8d %8d %12.3f %12.3f %12.3f\n",
			s.Variant, s.Met, s.Missed, s.MeanComputeMs, s.MaxComputeMs, s.WorstTotalMs)
	}
	fmt.Printf("\n")
}

func writeYAMLFile(path string, runs []report.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteYAML(f, runs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
