package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmmcore/internal/mathutil"
)

func runPrice(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	price, _ := cmd.Flags().GetInt64("price")
	exponent, _ := cmd.Flags().GetInt32("exponent")
	decimalsA, _ := cmd.Flags().GetUint8("decimals-a")
	decimalsB, _ := cmd.Flags().GetUint8("decimals-b")

	sqrtPrice, err := mathutil.InitialSqrtPrice(price, exponent, decimalsA, decimalsB)
	if err != nil {
		return fmt.Errorf("convert price: %w", err)
	}
	tick, err := mathutil.TickIndexFromSqrtPrice(sqrtPrice)
	if err != nil {
		return fmt.Errorf("derive tick: %w", err)
	}

	logger.Info("price converted",
		zap.Int64("price", price),
		zap.Int32("exponent", exponent),
		zap.String("sqrt_price_x64", sqrtPrice.String()),
		zap.Int32("tick_index", tick),
	)

	fmt.Printf("sqrt_price_x64=%s tick_index=%d\n", sqrtPrice, tick)
	return nil
}
