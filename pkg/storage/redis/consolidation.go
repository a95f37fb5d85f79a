package redis

import (
	"context"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// Consolidation run records live under the workspace namespace: a run is
// an audit artifact of the workspace whose store executed it, even though
// it samples both scopes.

// RecordRun persists a consolidation run record and advances the last-run
// timestamp in one pipelined submission.
func (s *Store) RecordRun(ctx context.Context, run *memory.ConsolidationRun) error {
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, runKey(s.ws, run.ID), encodeRun(run))
	pipe.ZAdd(ctx, runsKey(s.ws), goredis.Z{Score: float64(run.Timestamp), Member: run.ID})
	pipe.Set(ctx, lastRunKey(s.ws), strconv.FormatInt(run.Timestamp, 10), 0)

	_, err := pipe.Exec(ctx)
	return err
}

// LastRunAt returns the timestamp (milliseconds) of the most recent run,
// or 0 if no run has been recorded.
func (s *Store) LastRunAt(ctx context.Context) (int64, error) {
	val, err := s.rdb.Get(ctx, lastRunKey(s.ws)).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return ts, nil
}

// RunHistory returns up to limit consolidation runs, newest first.
func (s *Store) RunHistory(ctx context.Context, limit int) ([]*memory.ConsolidationRun, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := s.rdb.ZRevRange(ctx, runsKey(s.ws), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	runs := make([]*memory.ConsolidationRun, 0, len(ids))
	for _, id := range ids {
		fields, err := s.rdb.HGetAll(ctx, runKey(s.ws, id)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		run, err := decodeRun(fields)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
