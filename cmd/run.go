package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cachereplay/datarecording"
	"github.com/sarchlab/cachereplay/mem/cache"
	"github.com/sarchlab/cachereplay/mem/trace"
	"github.com/sarchlab/cachereplay/monitoring"
	"github.com/sarchlab/cachereplay/replay"
)

var (
	cacheSize     uint64 // Total cache capacity in bytes
	associativity string // direct | assoc | assoc:n
	policyName    string // fifo | lru
	blockSize     int    // Block size in bytes
	traceFile     string // Path of the trace to replay
	logLevel      string // Log verbosity level
	recordPath    string // Record results into a SQLite file at this path
	monitorPort   int    // Serve live stats on this port; 0 disables
	openBrowser   bool   // Open the monitor page in a browser
)

// runCmd replays one trace using the parameters from the CLI flags.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a trace and report hit, miss, and traffic counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)

		policy, err := cache.ParsePolicy(policyName)
		if err != nil {
			return err
		}

		ways, err := parseAssociativity(associativity, cacheSize, blockSize)
		if err != nil {
			return err
		}

		geometry, err := cache.MakeGeometry(cacheSize, ways, blockSize)
		if err != nil {
			return err
		}

		f, err := os.Open(traceFile)
		if err != nil {
			return fmt.Errorf("cannot open trace file %s: %w", traceFile, err)
		}
		defer f.Close()

		builder := replay.MakeBuilder().
			WithGeometry(geometry).
			WithPolicy(policy)

		if recordPath == "" {
			recordPath = os.Getenv("CACHEREPLAY_RECORD")
		}
		if recordPath != "" {
			recorder := datarecording.New(recordPath)
			defer recorder.Close()
			builder = builder.WithRecorder(recorder)
		}

		var monitor *monitoring.Monitor
		if monitorPort >= 0 {
			monitor = monitoring.NewMonitor().WithPortNumber(monitorPort)
			if openBrowser {
				monitor = monitor.WithBrowser()
			}
			builder = builder.WithMonitor(monitor)
		}

		runner := builder.Build()

		if monitor != nil {
			if err := monitor.StartServer(); err != nil {
				return fmt.Errorf("cannot start monitoring server: %w", err)
			}
		}

		reader := trace.NewReader(f)
		results, err := runner.Run(reader)
		if err != nil {
			return err
		}

		if skipped := reader.Skipped(); skipped > 0 {
			logrus.Warnf("Skipped %d malformed trace lines", skipped)
		}

		printReport(cmd.OutOrStdout(), results)

		return nil
	},
}

// parseAssociativity resolves the associativity token: "direct" is a
// 1-way cache, "assoc" a single fully-associative set, and "assoc:n" an
// n-way set-associative cache.
func parseAssociativity(
	token string,
	cacheSize uint64,
	blockSize int,
) (int, error) {
	switch {
	case token == "direct":
		return 1, nil
	case token == "assoc":
		if blockSize <= 0 || uint64(blockSize) > cacheSize {
			return 0, fmt.Errorf(
				"block size %d does not fit cache size %d",
				blockSize, cacheSize)
		}
		return int(cacheSize / uint64(blockSize)), nil
	case strings.HasPrefix(token, "assoc:"):
		n, err := strconv.Atoi(strings.TrimPrefix(token, "assoc:"))
		if err != nil {
			return 0, fmt.Errorf("invalid associativity %q", token)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid associativity %q", token)
	}
}

// printReport writes the counters of both runs in the report format, the
// prefetch-off cache first.
func printReport(w io.Writer, results []replay.Result) {
	for _, res := range results {
		prefetch := 0
		if res.PrefetchEnabled {
			prefetch = 1
		}

		fmt.Fprintf(w, "Prefetch %d\n", prefetch)
		fmt.Fprintf(w, "Memory reads: %d\n", res.Stats.Reads)
		fmt.Fprintf(w, "Memory writes: %d\n", res.Stats.Writes)
		fmt.Fprintf(w, "Cache hits: %d\n", res.Stats.Hits)
		fmt.Fprintf(w, "Cache misses: %d\n", res.Stats.Misses)
	}
}

// init sets up the CLI flags of the run command.
func init() {
	runCmd.Flags().Uint64Var(&cacheSize, "cache-size", 16*1024,
		"Total cache capacity in bytes (power of 2)")
	runCmd.Flags().StringVar(&associativity, "associativity", "assoc:4",
		"Cache associativity: direct, assoc, or assoc:n")
	runCmd.Flags().StringVar(&policyName, "policy", "lru",
		"Replacement policy (fifo, lru)")
	runCmd.Flags().IntVar(&blockSize, "block-size", 64,
		"Cache block size in bytes (power of 2)")
	runCmd.Flags().StringVar(&traceFile, "trace", "",
		"Path of the memory access trace to replay")
	runCmd.Flags().StringVar(&logLevel, "log", "warn",
		"Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&recordPath, "record", "",
		"Record results into a SQLite database at this path")
	runCmd.Flags().IntVar(&monitorPort, "monitor-port", -1,
		"Serve live stats over HTTP on this port (0 picks a free port)")
	runCmd.Flags().BoolVar(&openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")

	_ = runCmd.MarkFlagRequired("trace")

	rootCmd.AddCommand(runCmd)
}
