package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmmcore/internal/config"
	"clmmcore/internal/model"
	"clmmcore/internal/storage/postgres"
)

type snapshotRecord struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
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

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	logger.Info("snapshot load start",
		zap.String("snapshot", cfg.SnapshotPath),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	if prev, ok, err := store.LoadState(ctx, "last_snapshot_ts"); err != nil {
		return fmt.Errorf("load snapshot state: %w", err)
	} else if ok {
		logger.Info("previous snapshot found", zap.Uint64("loaded_at", prev))
	}

	file, err := os.Open(cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var (
		pools      []*model.Pool
		positions  []*model.Position
		tickArrays []*model.TickArray
		total      int
	)
	flush := func() error {
		if err := store.PutPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
		if err := store.PutPositions(ctx, positions); err != nil {
			return fmt.Errorf("upsert positions: %w", err)
		}
		if err := store.PutTickArrays(ctx, tickArrays); err != nil {
			return fmt.Errorf("upsert tick arrays: %w", err)
		}
		total += len(pools) + len(positions) + len(tickArrays)
		pools, positions, tickArrays = nil, nil, nil
		return nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record snapshotRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parse snapshot line: %w", err)
		}
		switch record.Kind {
		case "pool":
			pool := &model.Pool{}
			if err := json.Unmarshal(record.Data, pool); err != nil {
				return fmt.Errorf("parse pool: %w", err)
			}
			pools = append(pools, pool)
		case "position":
			position := &model.Position{}
			if err := json.Unmarshal(record.Data, position); err != nil {
				return fmt.Errorf("parse position: %w", err)
			}
			positions = append(positions, position)
		case "tick_array":
			array := &model.TickArray{}
			if err := json.Unmarshal(record.Data, array); err != nil {
				return fmt.Errorf("parse tick array: %w", err)
			}
			tickArrays = append(tickArrays, array)
		default:
			logger.Warn("unknown snapshot record kind", zap.String("kind", record.Kind))
		}

		if len(pools)+len(positions)+len(tickArrays) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}
	if err := store.SaveState(ctx, "last_snapshot_ts", uint64(time.Now().Unix())); err != nil {
		return fmt.Errorf("save snapshot state: %w", err)
	}

	logger.Info("snapshot load done", zap.Int("records", total))
	return nil
}
