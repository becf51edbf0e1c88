package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/Viewpulse/internal/misc"
)

const (
	defaultGatewayURL     = "http://localhost:9091"
	defaultJob            = "bilibili_monitoring"
	defaultTargetsFile    = "urls.txt"
	defaultInterval       = 15 * time.Second
	defaultAttempts       = 3
	defaultRetryDelay     = 2 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultAPIBase        = "https://api.bilibili.com"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
	defaultRateLimit      = 1
	defaultLogFile        = "error.log"
	defaultLogLevel       = "info"
)

type ExporterConfig struct {
	GatewayURL string
	Job        string
	Instance   string

	TargetsFile   string
	StaticTargets []string

	Interval       time.Duration
	Attempts       int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	APIBase        string
	UserAgent      string
	RateLimit      int
	CycleTimeout   time.Duration

	LogFile  string
	LogLevel string

	StatusAddr string
	ReportFile string
	ReportURL  string
	Key        string
	DSN        string
}

// LoadExporterConfig merges ENV > CLI > defaults.
func LoadExporterConfig(args []string, out io.Writer) (ExporterConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("exporter", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		gatewayOpt, jobOpt, instanceOpt   string
		fileOpt, targetsOpt               string
		intervalOpt, delayOpt, timeoutOpt string
		cycleTimeoutOpt                   string
		apiOpt, uaOpt                     string
		logOpt, logLevelOpt               string
		statusOpt, reportFileOpt          string
		reportURLOpt, keyOpt, dsnOpt      string
		attemptsOpt, limitOpt             int
	)

	fs.StringVar(&gatewayOpt, "g", "", fmt.Sprintf("pushgateway URL, default: %s", defaultGatewayURL))
	fs.StringVar(&jobOpt, "j", "", fmt.Sprintf("job name, default: %s", defaultJob))
	fs.StringVar(&instanceOpt, "n", "", "instance grouping label (empty: none)")
	fs.StringVar(&fileOpt, "f", "", fmt.Sprintf("targets file, default: %s", defaultTargetsFile))
	fs.StringVar(&targetsOpt, "t", "", "comma separated BV ids or video URLs (overrides -f)")
	fs.StringVar(&intervalOpt, "i", "", fmt.Sprintf("update interval (seconds or duration), default: %s", defaultInterval))
	fs.IntVar(&attemptsOpt, "attempts", 0, fmt.Sprintf("fetch attempts per request, default: %d", defaultAttempts))
	fs.StringVar(&delayOpt, "delay", "", fmt.Sprintf("delay between fetch attempts, default: %s", defaultRetryDelay))
	fs.StringVar(&timeoutOpt, "timeout", "", fmt.Sprintf("per request timeout, default: %s", defaultRequestTimeout))
	fs.StringVar(&cycleTimeoutOpt, "cycle-timeout", "", "deadline for the fetch phase of a cycle, default: none")
	fs.StringVar(&apiOpt, "api", "", fmt.Sprintf("upstream API base URL, default: %s", defaultAPIBase))
	fs.StringVar(&uaOpt, "ua", "", "User-Agent sent upstream")
	fs.IntVar(&limitOpt, "l", 0, fmt.Sprintf("max concurrent fetches, default: %d", defaultRateLimit))
	fs.StringVar(&logOpt, "log", "", fmt.Sprintf("diagnostic log file, default: %s", defaultLogFile))
	fs.StringVar(&logLevelOpt, "log-level", "", fmt.Sprintf("console log level, default: %s", defaultLogLevel))
	fs.StringVar(&statusOpt, "s", "", "status server listen address (empty: disabled)")
	fs.StringVar(&reportFileOpt, "report-file", "", "append cycle reports to this JSONL file")
	fs.StringVar(&reportURLOpt, "report-url", "", "POST cycle reports to this URL")
	fs.StringVar(&keyOpt, "k", "", "key for HashSHA256 report signatures")
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for the Postgres snapshot archive")

	if err := fs.Parse(args); err != nil {
		return ExporterConfig{}, err
	}

	cfg := ExporterConfig{
		GatewayURL:  normalizeURL(FromEnvOrFlag("PUSHGATEWAY_URL", gatewayOpt, defaultGatewayURL)),
		Job:         FromEnvOrFlag("JOB_NAME", jobOpt, defaultJob),
		Instance:    FromEnvOrFlag("INSTANCE", instanceOpt, ""),
		TargetsFile: FromEnvOrFlag("TARGETS_FILE", fileOpt, defaultTargetsFile),
		Attempts:    FromEnvOrFlagInt("FETCH_ATTEMPTS", attemptsOpt, defaultAttempts, 1),
		APIBase:     strings.TrimRight(FromEnvOrFlag("API_BASE", apiOpt, defaultAPIBase), "/"),
		UserAgent:   FromEnvOrFlag("USER_AGENT", uaOpt, defaultUserAgent),
		RateLimit:   FromEnvOrFlagInt("RATE_LIMIT", limitOpt, defaultRateLimit, 1),
		LogFile:     FromEnvOrFlag("LOG_FILE", logOpt, defaultLogFile),
		LogLevel:    FromEnvOrFlag("LOG_LEVEL", logLevelOpt, defaultLogLevel),
		StatusAddr:  FromEnvOrFlag("STATUS_ADDR", statusOpt, ""),
		ReportFile:  FromEnvOrFlag("REPORT_FILE", reportFileOpt, ""),
		ReportURL:   FromEnvOrFlag("REPORT_URL", reportURLOpt, ""),
		Key:         FromEnvOrFlag("KEY", keyOpt, ""),
		DSN:         FromEnvOrFlag("DATABASE_DSN", dsnOpt, ""),
	}
	cfg.StaticTargets = misc.SplitList(FromEnvOrFlag("TARGETS", targetsOpt, ""))

	if _, err := url.ParseRequestURI(cfg.GatewayURL); err != nil {
		return ExporterConfig{}, fmt.Errorf("invalid pushgateway address: %q", cfg.GatewayURL)
	}
	if _, err := url.ParseRequestURI(cfg.APIBase); err != nil {
		return ExporterConfig{}, fmt.Errorf("invalid api base: %q", cfg.APIBase)
	}

	var err error
	if cfg.Interval, err = FromEnvOrFlagDuration("UPDATE_INTERVAL", intervalOpt, defaultInterval); err != nil {
		return ExporterConfig{}, err
	}
	if cfg.Interval <= 0 {
		return ExporterConfig{}, fmt.Errorf("update interval must be > 0, got %v", cfg.Interval)
	}
	if cfg.RetryDelay, err = FromEnvOrFlagDuration("RETRY_DELAY", delayOpt, defaultRetryDelay); err != nil {
		return ExporterConfig{}, err
	}
	if cfg.RetryDelay < 0 {
		return ExporterConfig{}, fmt.Errorf("retry delay must be >= 0, got %v", cfg.RetryDelay)
	}
	if cfg.RequestTimeout, err = FromEnvOrFlagDuration("REQUEST_TIMEOUT", timeoutOpt, defaultRequestTimeout); err != nil {
		return ExporterConfig{}, err
	}
	if cfg.RequestTimeout <= 0 {
		return ExporterConfig{}, fmt.Errorf("request timeout must be > 0, got %v", cfg.RequestTimeout)
	}
	if cfg.CycleTimeout, err = FromEnvOrFlagDuration("CYCLE_TIMEOUT", cycleTimeoutOpt, 0); err != nil {
		return ExporterConfig{}, err
	}
	if cfg.CycleTimeout < 0 {
		cfg.CycleTimeout = 0
	}

	return cfg, nil
}

func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultGatewayURL
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + strings.TrimRight(s, "/")
}
