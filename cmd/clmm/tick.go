package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

func runTick(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sqrtPriceStr, _ := cmd.Flags().GetString("sqrt-price")
	tickSpacing, _ := cmd.Flags().GetUint16("tick-spacing")

	var tick int32
	if sqrtPriceStr != "" {
		sqrtPrice, err := uint128.FromString(sqrtPriceStr)
		if err != nil {
			return fmt.Errorf("parse sqrt price: %w", err)
		}
		tick, err = mathutil.TickIndexFromSqrtPrice(sqrtPrice)
		if err != nil {
			return fmt.Errorf("derive tick: %w", err)
		}
		fmt.Printf("tick_index=%d\n", tick)
	} else {
		tick, _ = cmd.Flags().GetInt32("index")
		sqrtPrice, err := mathutil.SqrtPriceFromTickIndex(tick)
		if err != nil {
			return fmt.Errorf("convert tick: %w", err)
		}
		fmt.Printf("sqrt_price_x64=%s\n", sqrtPrice)
	}

	if tickSpacing > 0 {
		start := model.TickArrayStartIndex(tick, tickSpacing)
		fmt.Printf("tick_array_start_index=%d\n", start)
	}

	return nil
}
