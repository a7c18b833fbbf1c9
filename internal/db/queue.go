package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

type DBTask struct {
	Ctx  context.Context
	Exec func(context.Context, *sql.DB) (interface{}, error)
	Resp chan DBResult
}

type DBResult struct {
	Data interface{}
	Err  error
}

var ErrQueueClosed = errors.New("db: queue closed")

// DBQueue funnels every statement through one worker so sqlite never sees
// concurrent writers.
type DBQueue struct {
	tasks      chan DBTask
	db         *sql.DB
	maxRetry   int
	retryDelay time.Duration
	testMode   bool

	closeOnce sync.Once
	closed    chan struct{}
}

func NewDBQueue(db *sql.DB) *DBQueue {
	return newQueue(db, 100*time.Millisecond, false)
}

func NewDBQueueForTest(db *sql.DB) *DBQueue {
	return newQueue(db, 1*time.Millisecond, true)
}

func newQueue(db *sql.DB, retryDelay time.Duration, testMode bool) *DBQueue {
	q := &DBQueue{
		tasks:      make(chan DBTask, 100),
		db:         db,
		maxRetry:   3,
		retryDelay: retryDelay,
		testMode:   testMode,
		closed:     make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *DBQueue) Execute(ctx context.Context, task func(context.Context, *sql.DB) (interface{}, error)) (interface{}, error) {
	resp := make(chan DBResult, 1)

	select {
	case <-q.closed:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case q.tasks <- DBTask{Ctx: ctx, Exec: task, Resp: resp}:
	}

	select {
	case result := <-resp:
		return result.Data, result.Err
	case <-q.closed:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *DBQueue) worker() {
	for {
		select {
		case <-q.closed:
			return
		case task := <-q.tasks:
			task.Resp <- q.executeWithRetry(task)
		}
	}
}

func (q *DBQueue) executeWithRetry(task DBTask) DBResult {
	var lastErr error
	for attempt := 0; attempt < q.maxRetry; attempt++ {
		if err := task.Ctx.Err(); err != nil {
			return DBResult{Err: err}
		}
		data, err := task.Exec(task.Ctx, q.db)
		if err == nil {
			return DBResult{Data: data}
		}
		if !isRetryable(err) {
			return DBResult{Err: err}
		}
		lastErr = err
		if attempt < q.maxRetry-1 {
			if q.testMode {
				time.Sleep(q.retryDelay)
			} else {
				time.Sleep(time.Duration(attempt+1) * q.retryDelay)
			}
		}
	}
	return DBResult{Err: lastErr}
}

// Lookups that find nothing and cancelled contexts will not change on retry.
func isRetryable(err error) bool {
	return !errors.Is(err, sql.ErrNoRows) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (q *DBQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

func (q *DBQueue) DB() *sql.DB {
	return q.db
}
