// Command distxn runs the replicated transaction engine against a
// command-stream file (or stdin): flag.StringVar-style options, a
// loaded Config, and a single top-level run function instead of
// os.Exit scattered through main.
package main

import (
	"flag"
	"fmt"
	"os"

	"distxn/config"
	"distxn/driver"
	"distxn/dtxnlog"
	"distxn/sitemanager"
	"distxn/snapshot"
	"distxn/txn"
)

// cliFlags holds the command-line options collected from flag.Parse.
type cliFlags struct {
	inputFile    string
	configFile   string
	logFormat    string
	logLevel     string
	snapshotOut  string
	snapshotCode string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.inputFile, "f", "", "command stream file (reads stdin if empty)")
	flag.StringVar(&f.configFile, "config", "", "optional YAML ambient-config file")
	flag.StringVar(&f.logFormat, "log-format", "", "log formatter: text or json")
	flag.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.StringVar(&f.snapshotOut, "snapshot-out", "", "write a diagnostic snapshot to this path on exit")
	flag.StringVar(&f.snapshotCode, "snapshot-codec", "", "snapshot compression: none, snappy, lz4, zstd")
	flag.Parse()
	return f
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "distxn:", err)
		os.Exit(1)
	}
}

func run(flags *cliFlags) error {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.LoadFile(flags.configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	cfg.LoadFromEnv()
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	logger := dtxnlog.New(dtxnlog.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&dtxnlog.TextFormatter{})
	}

	in := os.Stdin
	if flags.inputFile != "" {
		opened, err := os.Open(flags.inputFile)
		if err != nil {
			return fmt.Errorf("opening %s: %w", flags.inputFile, err)
		}
		defer opened.Close()
		in = opened
	}

	sm := sitemanager.New()
	tm := txn.New(sm, logger)
	d := driver.New(tm, logger, os.Stdout)

	runErr := d.Run(in)

	snapshotCodec := cfg.Snapshot.Codec
	if flags.snapshotCode != "" {
		snapshotCodec = flags.snapshotCode
	}
	if flags.snapshotOut != "" {
		if err := writeSnapshot(flags.snapshotOut, sm, snapshotCodec); err != nil {
			logger.Error("main", "snapshot", err.Error(), nil)
		}
	}

	return runErr
}

func writeSnapshot(path string, sm *sitemanager.SiteManager, codec string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}
	defer f.Close()
	return snapshot.Write(f, sm, snapshot.ParseCodec(codec))
}
