package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmcore/internal/config"
	"clmmcore/internal/engine"
	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
	"clmmcore/internal/storage"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolHex, _ := cmd.Flags().GetString("pool")
	amount, _ := cmd.Flags().GetUint64("amount")
	aToB, _ := cmd.Flags().GetBool("a-to-b")
	exactIn, _ := cmd.Flags().GetBool("exact-in")
	limitStr, _ := cmd.Flags().GetString("sqrt-price-limit")
	referralRate, _ := cmd.Flags().GetUint16("referral-fee-rate")
	nowStr, _ := cmd.Flags().GetString("now")
	outPath, _ := cmd.Flags().GetString("out")

	pools, arrays, err := loadSnapshot(cfg.SnapshotPath)
	if err != nil {
		return err
	}
	pool, err := selectPool(pools, poolHex)
	if err != nil {
		return err
	}

	limit := mathutil.MaxSqrtPrice
	if aToB {
		limit = mathutil.MinSqrtPrice
	}
	if limitStr != "" {
		limit, err = uint128.FromString(limitStr)
		if err != nil {
			return fmt.Errorf("parse sqrt price limit: %w", err)
		}
	}
	now, err := config.ParseTimestamp(nowStr)
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	if now == 0 {
		now = uint64(time.Now().Unix())
	}
	price, err := priceSource(cmd, cfg)
	if err != nil {
		return err
	}

	e := engine.New(logger)
	if outPath != "" {
		e.SnapshotTo(storage.NewJsonlStorage(outPath))
	}

	result, err := e.OpenSwap(pool, swapArrays(pool, arrays, aToB), engine.SwapParams{
		Amount:                 amount,
		SqrtPriceLimit:         limit,
		AmountSpecifiedIsInput: exactIn,
		AToB:                   aToB,
		ReferralFeeRate:        referralRate,
		Now:                    now,
		Price:                  price,
	})
	if err != nil {
		return fmt.Errorf("quote swap: %w", err)
	}

	logger.Info("swap quoted",
		zap.String("pool", pool.Address.Hex()),
		zap.Bool("a_to_b", aToB),
		zap.Uint64("amount_in", result.AmountIn),
		zap.Uint64("amount_out", result.AmountOut),
		zap.Int32("tick_index", result.Update.NextTickIndex),
	)

	fmt.Printf("amount_in=%d amount_out=%d sqrt_price_x64=%s tick_index=%d\n",
		result.AmountIn, result.AmountOut, result.Update.NextSqrtPrice, result.Update.NextTickIndex)
	return nil
}

// priceSource builds the swap's price source: an oracle resync when a quote
// is given on the command line, the pool's stored price otherwise.
func priceSource(cmd *cobra.Command, cfg config.Config) (engine.PriceSource, error) {
	oraclePrice, _ := cmd.Flags().GetInt64("oracle-price")
	if oraclePrice == 0 {
		return engine.NoPrice{}, nil
	}
	exponent, _ := cmd.Flags().GetInt32("oracle-exponent")
	publishStr, _ := cmd.Flags().GetString("oracle-publish-time")
	decimalsA, _ := cmd.Flags().GetUint8("decimals-a")
	decimalsB, _ := cmd.Flags().GetUint8("decimals-b")

	publishTime, err := config.ParseTimestamp(publishStr)
	if err != nil {
		return nil, fmt.Errorf("parse oracle publish time: %w", err)
	}
	return engine.OraclePrice{
		Quote: engine.PriceQuote{
			Price:       oraclePrice,
			Exponent:    exponent,
			PublishTime: publishTime,
		},
		MaxAge:    uint64(cfg.OracleMaxAge.Seconds()),
		DecimalsA: decimalsA,
		DecimalsB: decimalsB,
	}, nil
}

func loadSnapshot(path string) ([]*model.Pool, []*model.TickArray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var (
		pools      []*model.Pool
		tickArrays []*model.TickArray
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record snapshotRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, nil, fmt.Errorf("parse snapshot line: %w", err)
		}
		switch record.Kind {
		case "pool":
			pool := &model.Pool{}
			if err := json.Unmarshal(record.Data, pool); err != nil {
				return nil, nil, fmt.Errorf("parse pool: %w", err)
			}
			pools = append(pools, pool)
		case "tick_array":
			array := &model.TickArray{}
			if err := json.Unmarshal(record.Data, array); err != nil {
				return nil, nil, fmt.Errorf("parse tick array: %w", err)
			}
			tickArrays = append(tickArrays, array)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	return pools, tickArrays, nil
}

func selectPool(pools []*model.Pool, poolHex string) (*model.Pool, error) {
	if len(pools) == 0 {
		return nil, fmt.Errorf("snapshot holds no pools")
	}
	if poolHex == "" {
		if len(pools) > 1 {
			return nil, fmt.Errorf("snapshot holds %d pools, pick one with --pool", len(pools))
		}
		return pools[0], nil
	}
	for _, pool := range pools {
		if pool.Address == common.HexToAddress(poolHex) {
			return pool, nil
		}
	}
	return nil, fmt.Errorf("pool %s not in snapshot", poolHex)
}

// swapArrays picks the pool's tick arrays in consumption order: the array
// holding the current tick, then up to two more in the swap direction.
func swapArrays(pool *model.Pool, arrays []*model.TickArray, aToB bool) []*model.TickArray {
	byStart := make(map[int32]*model.TickArray, len(arrays))
	for _, array := range arrays {
		if array.Pool == pool.Address {
			byStart[array.StartTickIndex] = array
		}
	}

	span := int32(pool.TickSpacing) * model.TickArraySize
	if aToB {
		span = -span
	}
	start := model.TickArrayStartIndex(pool.TickCurrentIndex, pool.TickSpacing)

	var picked []*model.TickArray
	for i := 0; i < engine.MaxSwapTickArrays; i++ {
		array, ok := byStart[start+int32(i)*span]
		if !ok {
			break
		}
		picked = append(picked, array)
	}
	return picked
}
