package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mail-export/model"
)

// Source selects the mail store backing an export run.
const (
	SourceIMAP = "imap"
	SourceMbox = "mbox"
)

// Config captures all command-line options required to run an export.
type Config struct {
	Source    string
	Account   string
	Folder    string
	OutputDir string
	Count     int
	KeepRaw   bool

	MboxPath string

	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool

	RenderTimeout time.Duration
	LogLevel      string

	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// FolderRef resolves the configured account and folder path into a store
// reference. The account defaults to the IMAP user or the mbox pseudo
// account when not set explicitly.
func (c Config) FolderRef() model.FolderRef {
	account := c.Account
	if account == "" {
		if c.Source == SourceMbox {
			account = "mbox"
		} else {
			account = c.IMAPUser
		}
	}
	return model.NewFolderRef(account, c.Folder)
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("source", SourceIMAP, "Mail store backend: imap or mbox")
	flags.String("account", "", "Account name (defaults to the IMAP user)")
	flags.String("folder", "INBOX", "Folder to export, nested folders separated by /")
	flags.StringP("output", "o", "", "Output directory for exported documents and the contact report")
	flags.IntP("count", "n", 10, "Number of most recent messages to export")
	flags.Bool("keep-raw", false, "Keep the intermediate .eml next to each rendered document")
	flags.String("mbox", "", "Path to the .mbox file (required with --source=mbox)")
	flags.String("imap-host", "", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.Duration("render-timeout", 60*time.Second, "Timeout for rendering a single document")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")

	return cmd.MarkFlagRequired("output")
}

// RegisterStoreFlags attaches only the flags needed to open a mail store.
// Used by subcommands that inspect an account without exporting anything.
func RegisterStoreFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("source", SourceIMAP, "Mail store backend: imap or mbox")
	flags.String("mbox", "", "Path to the .mbox file (required with --source=mbox)")
	flags.String("imap-host", "", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
}

// LoadStoreConfig reads the flags registered by RegisterStoreFlags.
func LoadStoreConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	var cfg Config
	var err error
	if cfg.Source, err = flags.GetString("source"); err != nil {
		return Config{}, err
	}
	if cfg.MboxPath, err = flags.GetString("mbox"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPHost, err = flags.GetString("imap-host"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPPort, err = flags.GetInt("imap-port"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPUser, err = flags.GetString("imap-user"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPPass, err = flags.GetString("imap-pass"); err != nil {
		return Config{}, err
	}
	if cfg.UseTLS, err = flags.GetBool("use-tls"); err != nil {
		return Config{}, err
	}
	if cfg.InsecureSkipVerify, err = flags.GetBool("insecure-skip-verify"); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
		return Config{}, err
	}

	if cfg.IMAPPass == "" {
		cfg.IMAPPass = os.Getenv("IMAP_PASS")
	}
	cfg.Source = strings.ToLower(cfg.Source)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	if err := validateStore(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	source, err := flags.GetString("source")
	if err != nil {
		return Config{}, err
	}
	account, err := flags.GetString("account")
	if err != nil {
		return Config{}, err
	}
	folder, err := flags.GetString("folder")
	if err != nil {
		return Config{}, err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return Config{}, err
	}
	count, err := flags.GetInt("count")
	if err != nil {
		return Config{}, err
	}
	keepRaw, err := flags.GetBool("keep-raw")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	renderTimeout, err := flags.GetDuration("render-timeout")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	includeHeader, err := flags.GetStringArray("include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := flags.GetStringArray("exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}

	if imapPass == "" {
		imapPass = os.Getenv("IMAP_PASS")
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		Source:             strings.ToLower(source),
		Account:            account,
		Folder:             folder,
		OutputDir:          filepath.Clean(output),
		Count:              count,
		KeepRaw:            keepRaw,
		MboxPath:           mboxPath,
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		InsecureSkipVerify: insecureSkipVerify,
		RenderTimeout:      renderTimeout,
		LogLevel:           logLevel,
		IncludeHeader:      includeHeader,
		IncludeBody:        includeBody,
		ExcludeHeader:      excludeHeader,
		ExcludeBody:        excludeBody,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.OutputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if cfg.Count <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	if cfg.Folder == "" {
		return fmt.Errorf("--folder is required")
	}

	if err := validateStore(cfg); err != nil {
		return err
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func validateStore(cfg Config) error {
	switch cfg.Source {
	case SourceIMAP:
		if cfg.IMAPHost == "" {
			return fmt.Errorf("--imap-host is required with --source=imap")
		}
		if cfg.IMAPUser == "" {
			return fmt.Errorf("--imap-user is required with --source=imap")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	case SourceMbox:
		if cfg.MboxPath == "" {
			return fmt.Errorf("--mbox is required with --source=mbox")
		}
	default:
		return fmt.Errorf("invalid --source: %s", cfg.Source)
	}
	return nil
}
