package report

// Constants defining default values for configuration options.
// These are used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultMaxParallelFiles bounds concurrently running Aggregators. 0 means one per file.
	DefaultMaxParallelFiles = 0
	// DefaultLineWorkers is the number of sub-workers per file. 1 is a plain sequential scan.
	DefaultLineWorkers = 1
	// DefaultMaxProducts caps catalog entries. 0 means unlimited; the legacy tool used 10.
	DefaultMaxProducts = 0
	// DefaultOrdersPattern matches order-detail files when discovering a directory.
	DefaultOrdersPattern = "*_order_details.txt"
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = false
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

const (
	// maxLineBytes is the longest order line the scanner accepts before failing the stream.
	maxLineBytes = 1024 * 1024
	// lineQueueDepth is the per-worker buffer when lines are fanned out to sub-workers.
	lineQueueDepth = 64
)

// ReportSeparator closes each rendered report block.
const ReportSeparator = "--------------------------------------------------"

// FinalReportsHeader is printed once before the report blocks.
const FinalReportsHeader = "===== Final Reports ====="
