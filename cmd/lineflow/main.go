package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ghalamif/LineFlow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "query":
		err = queryCommand(os.Args[2:], os.Stdout)
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("lineflow %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := lineflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := lineflow.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func queryCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	preset := fs.String("preset", "", "Window preset ("+strings.Join(lineflow.PresetNames(), ", ")+")")
	start := fs.String("start", "", "Window start (epoch seconds or RFC3339)")
	end := fs.String("end", "", "Window end (epoch seconds or RFC3339)")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, err := resolveWindow(*preset, *start, *end, time.Now())
	if err != nil {
		return err
	}

	cfg, err := lineflow.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt, err := lineflow.NewRuntime(cfg,
		lineflow.WithoutAPI(),
		lineflow.WithoutMetricsServer(),
		lineflow.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := rt.Query(ctx, w)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printReport(out, res)
}

func resolveWindow(preset, start, end string, now time.Time) (lineflow.QueryWindow, error) {
	if preset != "" {
		return lineflow.PresetWindow(preset, now)
	}
	if start == "" || end == "" {
		return lineflow.QueryWindow{}, errors.New("either -preset or both -start and -end are required")
	}
	s, err := parseInstant(start)
	if err != nil {
		return lineflow.QueryWindow{}, fmt.Errorf("-start: %w", err)
	}
	e, err := parseInstant(end)
	if err != nil {
		return lineflow.QueryWindow{}, fmt.Errorf("-end: %w", err)
	}
	w := lineflow.QueryWindow{Start: s, End: e}
	return w, w.Validate()
}

func parseInstant(v string) (time.Time, error) {
	if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, v)
}

func printReport(out io.Writer, res lineflow.Result) error {
	start, end := res.Window.EpochSeconds()
	fmt.Fprintf(out, "window   %s .. %s (%d .. %d)\n",
		res.Window.Start.Format(time.RFC3339), res.Window.End.Format(time.RFC3339), start, end)
	fmt.Fprintf(out, "status   %s, %d samples, %d dropped rows\n", res.Status(), len(res.Samples), res.DroppedRows)
	fmt.Fprintf(out, "downtime %s in %d stoppages, availability %.1f%%\n\n",
		res.Summary.TotalDowntime, res.Summary.Records, res.Summary.Availability*100)

	if len(res.Records) == 0 {
		fmt.Fprintln(out, "no stoppages")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tDURATION\tSAMPLES\tMERGED\tMEAN SPEED")
	for _, r := range res.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\n",
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Duration, r.SampleCount, r.MergedStops, r.MeanSpeed)
	}
	return tw.Flush()
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	"lineflow_pipeline_runs_total",
	"lineflow_pipeline_failures_total",
	"lineflow_rows_dropped_total",
	"lineflow_ticks_skipped_total",
	"lineflow_last_run_availability",
	"lineflow_ws_clients",
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scanMetrics(resp.Body, statsTargets)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] runs=%.0f failures=%.0f dropped_rows=%.0f skipped_ticks=%.0f availability=%.3f ws_clients=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["lineflow_pipeline_runs_total"],
		values["lineflow_pipeline_failures_total"],
		values["lineflow_rows_dropped_total"],
		values["lineflow_ticks_skipped_total"],
		values["lineflow_last_run_availability"],
		values["lineflow_ws_clients"],
	)
	return nil
}

// scanMetrics reads unlabelled samples for keys from the Prometheus text format.
func scanMetrics(r io.Reader, keys []string) (map[string]float64, error) {
	values := make(map[string]float64, len(keys))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range keys {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					values[key] = value
				}
			}
		}
	}
	return values, scanner.Err()
}

func printUsage() {
	fmt.Printf(`LineFlow CLI

Usage:
  lineflow <command> [flags]

Commands:
  run        Start the runtime (API, auto-refresh, metrics) using the provided config
  validate   Load and validate a config file without starting the runtime
  query      Run one downtime query and print the stoppages
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  lineflow run -config ./data/config.yaml
  lineflow validate -config ./data/config.yaml
  lineflow query -config ./data/config.yaml -preset 24h
  lineflow query -config ./data/config.yaml -start 1709280000 -end 1709366400 -json
  lineflow stats -url http://localhost:9100/metrics -interval 1s
`)
}
