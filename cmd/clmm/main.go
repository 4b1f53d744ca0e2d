package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "clmm",
		Short:        "CLMM accounting engine tools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Convert an oracle price quote into a Q64.64 sqrt price and tick",
		RunE:  runPrice,
	}

	priceCmd.Flags().Int64("price", 0, "oracle price mantissa")
	priceCmd.Flags().Int32("exponent", 0, "oracle price exponent (power of ten)")
	priceCmd.Flags().Uint8("decimals-a", 0, "token A decimals")
	priceCmd.Flags().Uint8("decimals-b", 0, "token B decimals")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Convert between tick index and sqrt price",
		RunE:  runTick,
	}

	tickCmd.Flags().Int32("index", 0, "tick index to convert")
	tickCmd.Flags().String("sqrt-price", "", "Q64.64 sqrt price to convert (decimal)")
	tickCmd.Flags().Uint16("tick-spacing", 0, "tick spacing, reports the containing array start when set")
	tickCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(tickCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Load a JSONL state snapshot into Postgres",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("snapshot", "./data/snapshot.jsonl", "snapshot JSONL path")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	snapshotCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against a JSONL state snapshot",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("snapshot", "./data/snapshot.jsonl", "snapshot JSONL path")
	quoteCmd.Flags().String("pool", "", "pool address, required when the snapshot holds several")
	quoteCmd.Flags().Uint64("amount", 0, "swap amount (wire units)")
	quoteCmd.Flags().Bool("a-to-b", false, "swap token A for token B")
	quoteCmd.Flags().Bool("exact-in", true, "amount is the input side")
	quoteCmd.Flags().String("sqrt-price-limit", "", "Q64.64 sqrt price limit (decimal), defaults to the tick bound")
	quoteCmd.Flags().Uint16("referral-fee-rate", 0, "referral fee share in basis points")
	quoteCmd.Flags().String("now", "", "operation timestamp (unix seconds or RFC3339), defaults to wall clock")
	quoteCmd.Flags().String("out", "", "write the post-swap snapshot to this JSONL path")
	quoteCmd.Flags().Int64("oracle-price", 0, "oracle price mantissa, resyncs the pool price when set")
	quoteCmd.Flags().Int32("oracle-exponent", 0, "oracle price exponent (power of ten)")
	quoteCmd.Flags().String("oracle-publish-time", "", "oracle quote publish time (unix seconds or RFC3339)")
	quoteCmd.Flags().Uint8("decimals-a", 0, "token A decimals")
	quoteCmd.Flags().Uint8("decimals-b", 0, "token B decimals")
	quoteCmd.Flags().Duration("oracle-max-age", 60*time.Second, "maximum oracle quote age")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
