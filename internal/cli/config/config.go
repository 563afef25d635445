package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stackvity/sales-report/pkg/report/encoding"
	tmpl "github.com/stackvity/sales-report/pkg/report/template"
	"golang.org/x/term"
)

const (
	EnvPrefix         = "SALESREPORT"
	DefaultConfigName = "sales-report"
)

// Options holds the fully merged CLI configuration.
type Options struct {
	Catalog          string   `mapstructure:"catalog"`
	Orders           []string `mapstructure:"orders"`
	OrdersDir        string   `mapstructure:"ordersDir"`
	OrdersPattern    string   `mapstructure:"ordersPattern"`
	Ignore           []string `mapstructure:"ignore"`
	MaxParallelFiles int      `mapstructure:"maxParallelFiles"`
	LineWorkers      int      `mapstructure:"lineWorkers"`
	MaxProducts      int      `mapstructure:"maxProducts"`
	DefaultEncoding  string   `mapstructure:"defaultEncoding"`
	TemplateFile     string   `mapstructure:"templateFile"`
	Verbose          bool     `mapstructure:"verbose"`
	TuiEnabled       bool     `mapstructure:"tuiEnabled"`
	MetricsFile      string   `mapstructure:"metricsFile"`

	// Derived, not read from config sources.
	AppVersion     string             `mapstructure:"-"`
	ConfigFilePath string             `mapstructure:"-"`
	ProfileName    string             `mapstructure:"-"`
	RunID          string             `mapstructure:"-"`
	OrderPaths     []string           `mapstructure:"-"` // Explicit then discovered, deduplicated
	Template       *template.Template `mapstructure:"-"`
	LogHandler     slog.Handler       `mapstructure:"-"`
	// LogBuffer holds log output while the TUI owns the terminal. Nil otherwise.
	LogBuffer *bytes.Buffer `mapstructure:"-"`
}

// ReportOptions maps the CLI configuration onto the library options.
// Hooks and metrics are injected by the caller.
func (o Options) ReportOptions() report.Options {
	return report.Options{
		MaxParallelFiles: o.MaxParallelFiles,
		LineWorkers:      o.LineWorkers,
		Logger:           o.LogHandler,
		Decoder:          encoding.NewCharsetDecoder(o.DefaultEncoding),
	}
}

// logOutput receives log records when the TUI is not active.
var logOutput io.Writer = os.Stderr

// isTerminal reports whether stderr is attached to a TTY.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }

// flagKeys maps viper keys to the flag names bound to them.
var flagKeys = map[string]string{
	"catalog":          "catalog",
	"ordersDir":        "orders-dir",
	"ordersPattern":    "pattern",
	"ignore":           "ignore",
	"maxParallelFiles": "max-parallel-files",
	"lineWorkers":      "line-workers",
	"maxProducts":      "max-products",
	"defaultEncoding":  "default-encoding",
	"templateFile":     "template",
	"verbose":          "verbose",
	"tuiEnabled":       "tui",
	"metricsFile":      "metrics-file",
}

// LoadAndValidate loads configuration from all sources (defaults, file, profile, env, flags),
// applies positional order files, discovers order files, validates the merged result,
// loads the report template and sets up the logger.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, args []string, flags *pflag.FlagSet) (Options, *slog.Logger, error) {
	var opts Options
	v := viper.New()

	// Temporary logger for errors raised before the final level is known
	tempLogger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	// --- Apply Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("%w: profile '%s' not found in config file '%s'", report.ErrConfigValidation, profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", name))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	opts.AppVersion = appVersion

	// Explicit flags always win for booleans.
	if flags.Changed("verbose") || verbose {
		opts.Verbose = verbose
	}
	if flags.Changed("tui") {
		opts.TuiEnabled, _ = flags.GetBool("tui")
	}

	// Positional arguments replace configured order files.
	if len(args) > 0 {
		opts.Orders = append([]string(nil), args...)
	}

	// --- TUI Decision ---
	if opts.TuiEnabled && (opts.Verbose || !isTerminal()) {
		tempLogger.Debug("TUI disabled", slog.Bool("verbose", opts.Verbose))
		opts.TuiEnabled = false
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	out := logOutput
	if opts.TuiEnabled {
		opts.LogBuffer = &bytes.Buffer{}
		out = opts.LogBuffer
	}
	opts.RunID = uuid.NewString()
	opts.LogHandler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}).
		WithAttrs([]slog.Attr{slog.String("runID", opts.RunID)})
	logger := slog.New(opts.LogHandler)

	// --- Load Custom or Default Template ---
	if opts.TemplateFile != "" {
		absTplPath, err := filepath.Abs(opts.TemplateFile)
		if err != nil {
			err = fmt.Errorf("%w: cannot resolve template path '%s': %w", report.ErrConfigValidation, opts.TemplateFile, err)
			logger.Error(err.Error(), slog.String("key", "templateFile"))
			return opts, logger, err
		}
		opts.TemplateFile = absTplPath
		custom, err := tmpl.LoadTemplateFile(opts.TemplateFile)
		if err != nil {
			err = fmt.Errorf("%w: %w", report.ErrConfigValidation, err)
			logger.Error("Failed to load custom template", slog.String("path", opts.TemplateFile), slog.String("error", err.Error()))
			return opts, logger, err
		}
		opts.Template = custom
		logger.Debug("Loaded custom template", slog.String("path", opts.TemplateFile))
	} else {
		defaultTmpl, err := tmpl.LoadDefaultTemplate()
		if err != nil {
			logger.Error("Critical: Failed to load embedded default template", slog.String("error", err.Error()))
			return opts, logger, fmt.Errorf("critical internal error: failed to load default template: %w", err)
		}
		opts.Template = defaultTmpl
	}

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Int("orderFiles", len(opts.OrderPaths)),
		slog.Bool("tuiEnabled", opts.TuiEnabled),
		slog.String("logLevel", logLevel.String()),
	)

	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in Viper.
// Every key needs a default so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog", "")
	v.SetDefault("orders", []string{})
	v.SetDefault("ordersDir", "")
	v.SetDefault("ordersPattern", report.DefaultOrdersPattern)
	v.SetDefault("ignore", []string{})

	v.SetDefault("maxParallelFiles", report.DefaultMaxParallelFiles)
	v.SetDefault("lineWorkers", report.DefaultLineWorkers)
	v.SetDefault("maxProducts", report.DefaultMaxProducts)

	v.SetDefault("defaultEncoding", "")
	v.SetDefault("templateFile", "")
	v.SetDefault("metricsFile", "")

	v.SetDefault("verbose", report.DefaultVerbose)
	v.SetDefault("tuiEnabled", report.DefaultTuiEnabled)
}

// validateAndDeriveOptions performs semantic validation and resolves the
// final list of order files. Errors wrap report.ErrConfigValidation.
func validateAndDeriveOptions(opts *Options, logger *slog.Logger) error {
	if strings.TrimSpace(opts.Catalog) == "" {
		err := fmt.Errorf("%w: catalog path is required (--catalog)", report.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "catalog"))
		return err
	}

	numeric := []struct {
		key   string
		value int
		min   int
	}{
		{"maxParallelFiles", opts.MaxParallelFiles, 0},
		{"maxProducts", opts.MaxProducts, 0},
		{"lineWorkers", opts.LineWorkers, 1},
	}
	for _, n := range numeric {
		if n.value < n.min {
			err := fmt.Errorf("%w: invalid value '%d' for key '%s'. Must be >= %d", report.ErrConfigValidation, n.value, n.key, n.min)
			logger.Error(err.Error(), slog.String("key", n.key), slog.Int("value", n.value))
			return err
		}
	}

	var discovered []string
	if opts.OrdersDir != "" {
		var err error
		discovered, err = report.DiscoverOrderFiles(opts.OrdersDir, opts.OrdersPattern, opts.Ignore, opts.LogHandler)
		if err != nil {
			if !errors.Is(err, report.ErrConfigValidation) {
				err = fmt.Errorf("%w: %w", report.ErrConfigValidation, err)
			}
			logger.Error("Order file discovery failed", slog.String("dir", opts.OrdersDir), slog.String("error", err.Error()))
			return err
		}
		logger.Debug("Discovered order files", slog.String("dir", opts.OrdersDir), slog.Int("count", len(discovered)))
	}

	// Order files are not stat-ed here. A missing file is reported per file.
	opts.OrderPaths = report.MergePaths(opts.Orders, discovered)
	if len(opts.OrderPaths) == 0 {
		err := fmt.Errorf("%w: at least one order file is required (positional arguments, 'orders' or --orders-dir)", report.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "orders"))
		return err
	}
	return nil
}
