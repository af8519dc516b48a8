package s2_signals

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/eds/backend/pkg/logger"
)

// PoolResult is the outcome of one task, tagged with its submission index
type PoolResult[R any] struct {
	Index  int
	Symbol string
	Value  R
	Err    error
}

// RunPool runs fn for every item on a bounded worker pool.
// 결과는 완료 순서로 수집한 뒤 제출 순서로 재정렬. 실패(에러, panic)는
// 로그 후 제외되며 다른 워커에 영향 없음
func RunPool[T any, R any](
	ctx context.Context,
	log *logger.Logger,
	workers int,
	items []T,
	symbolOf func(T) string,
	fn func(ctx context.Context, item T) (R, error),
) []PoolResult[R] {
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		item  T
	}

	jobCh := make(chan job, len(items))
	resultCh := make(chan PoolResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				resultCh <- runOne(ctx, log, workerID, j.index, symbolOf(j.item), j.item, fn)
			}
		}(i)
	}

	for i, item := range items {
		jobCh <- job{index: i, item: item}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]PoolResult[R], 0, len(items))
	failed := 0
	for r := range resultCh {
		if r.Err != nil {
			failed++
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	log.WithFields(map[string]interface{}{
		"total":   len(items),
		"success": len(results),
		"failed":  failed,
		"workers": workers,
	}).Info("Worker pool completed")

	return results
}

func runOne[T any, R any](
	ctx context.Context,
	log *logger.Logger,
	workerID, index int,
	symbol string,
	item T,
	fn func(ctx context.Context, item T) (R, error),
) (res PoolResult[R]) {
	res = PoolResult[R]{Index: index, Symbol: symbol}

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			log.WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
				"panic":  fmt.Sprint(p),
			}).Error("Worker panicked, symbol dropped")
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	v, err := fn(ctx, item)
	if err != nil {
		res.Err = err
		log.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
			"error":  err.Error(),
		}).Warn("Symbol failed, dropped from batch")
		return res
	}

	res.Value = v
	return res
}
