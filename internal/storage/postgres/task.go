package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wechat_sync/internal/domain"
)

const uniqueViolation = "23505"

// ErrTaskExists is returned by Create for a duplicate task id.
var ErrTaskExists = errors.New("task already exists")

// TaskStore persists sync tasks. State changes are conditional updates, so
// a task can only be claimed by one worker at a time.
type TaskStore struct {
	db             *sqlx.DB
	retryBaseDelay time.Duration
}

func NewTaskStore(db *sqlx.DB, retryBaseDelay time.Duration) *TaskStore {
	return &TaskStore{db: db, retryBaseDelay: retryBaseDelay}
}

type taskRow struct {
	ID             string         `db:"id"`
	AccountID      string         `db:"account_id"`
	Status         string         `db:"status"`
	Progress       []byte         `db:"progress"`
	Request        []byte         `db:"request"`
	Result         []byte         `db:"result"`
	Error          sql.NullString `db:"error"`
	ProcessedCount int            `db:"processed_count"`
	RetryCount     int            `db:"retry_count"`
	MaxRetries     int            `db:"max_retries"`
	NextRetryAt    *time.Time     `db:"next_retry_at"`
	StartedAt      *time.Time     `db:"started_at"`
	FinishedAt     *time.Time     `db:"finished_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *taskRow) toDomain() (*domain.SyncTask, error) {
	task := &domain.SyncTask{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Status:         domain.TaskStatus(r.Status),
		Error:          r.Error.String,
		ProcessedCount: r.ProcessedCount,
		RetryCount:     r.RetryCount,
		MaxRetries:     r.MaxRetries,
		NextRetryAt:    r.NextRetryAt,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if len(r.Progress) > 0 {
		if err := json.Unmarshal(r.Progress, &task.Progress); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
	}
	if len(r.Request) > 0 {
		task.Request = &domain.SyncRequest{}
		if err := json.Unmarshal(r.Request, task.Request); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
	}
	if len(r.Result) > 0 {
		task.Result = &domain.SyncResult{}
		if err := json.Unmarshal(r.Result, task.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return task, nil
}

// Create inserts a pending task for req.
func (s *TaskStore) Create(ctx context.Context, req domain.SyncRequest, maxRetries int) error {
	request, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	progress, err := json.Marshal(domain.Progress{ArticleLimit: req.ArticleLimit})
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_tasks (id, account_id, status, progress, request, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		req.TaskID, req.AccountID, domain.TaskPending, string(progress), string(request), maxRetries,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrTaskExists, req.TaskID)
	}
	return err
}

// MarkRunning claims a pending or retrying task. It returns false when the
// task is missing or in any other state.
func (s *TaskStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	var claimed string
	err := s.db.GetContext(ctx, &claimed, `
		UPDATE sync_tasks
		SET status = $2, started_at = now(), finished_at = NULL, error = NULL, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING id`,
		id, domain.TaskRunning, domain.TaskPending, domain.TaskRetrying,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TaskStore) UpdateProgress(ctx context.Context, id string, progress domain.Progress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return s.execRunning(ctx, `
		UPDATE sync_tasks SET progress = $2, updated_at = now()
		WHERE id = $1 AND status = 'running'`,
		id, string(payload),
	)
}

func (s *TaskStore) MarkCompleted(ctx context.Context, id string, result domain.SyncResult, processedCount int) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.execRunning(ctx, `
		UPDATE sync_tasks
		SET status = 'completed',
			result = $2,
			processed_count = $3,
			progress = jsonb_set(progress, '{progress_percentage}', '100'),
			finished_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'running'`,
		id, string(payload), processedCount,
	)
}

func (s *TaskStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return s.execRunning(ctx, `
		UPDATE sync_tasks
		SET status = 'failed', error = $2, finished_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'running'`,
		id, errMsg,
	)
}

// GetTask returns nil when the task does not exist.
func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.SyncTask, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, account_id, status, progress, request, result, error, processed_count,
			retry_count, max_retries, next_retry_at, started_at, finished_at, created_at, updated_at
		FROM sync_tasks
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// RetryTask moves a failed task with remaining budget to retrying and
// schedules it after an exponential delay.
func (s *TaskStore) RetryTask(ctx context.Context, id string) (bool, error) {
	var scheduled string
	err := s.db.GetContext(ctx, &scheduled, `
		UPDATE sync_tasks
		SET status = 'retrying',
			retry_count = retry_count + 1,
			next_retry_at = now() + make_interval(secs => $2 * power(2, retry_count)),
			updated_at = now()
		WHERE id = $1 AND status = 'failed' AND retry_count < max_retries
		RETURNING id`,
		id, s.retryBaseDelay.Seconds(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClaimDueRetries returns the requests of retrying tasks whose delay has
// elapsed. Each task is handed out once.
func (s *TaskStore) ClaimDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.SyncRequest, error) {
	var rows []struct {
		ID      string `db:"id"`
		Request []byte `db:"request"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		UPDATE sync_tasks
		SET next_retry_at = NULL, updated_at = now()
		WHERE id IN (
			SELECT id FROM sync_tasks
			WHERE status = 'retrying' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
			ORDER BY next_retry_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, request`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}

	requests := make([]domain.SyncRequest, 0, len(rows))
	for _, r := range rows {
		if len(r.Request) == 0 {
			continue
		}
		var req domain.SyncRequest
		if err := json.Unmarshal(r.Request, &req); err != nil {
			return nil, fmt.Errorf("decode request of %s: %w", r.ID, err)
		}
		req.TaskID = r.ID
		requests = append(requests, req)
	}
	return requests, nil
}

// DeferRetry puts a claimed retry back on the schedule at the given time.
func (s *TaskStore) DeferRetry(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_tasks SET next_retry_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'retrying'`,
		id, at,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s is not retrying: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *TaskStore) execRunning(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s is not running: %w", args[0], domain.ErrNotFound)
	}
	return nil
}
