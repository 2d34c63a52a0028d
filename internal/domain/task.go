package domain

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskRetrying  TaskStatus = "retrying"
)

// SyncTask is the persisted state of one asynchronous sync run.
type SyncTask struct {
	ID             string
	AccountID      string
	Status         TaskStatus
	Progress       Progress
	Request        *SyncRequest
	Result         *SyncResult
	Error          string
	ProcessedCount int
	RetryCount     int
	MaxRetries     int
	NextRetryAt    *time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasRetryBudget reports whether another attempt is allowed.
func (t *SyncTask) HasRetryBudget() bool {
	return t.RetryCount < t.MaxRetries
}

type Step string

const (
	StepFetchingArticles   Step = "fetching_articles"
	StepProcessingArticles Step = "processing_articles"
	StepDownloadingMedia   Step = "downloading_media"
	StepFinalizing         Step = "finalizing"
)

// Progress is the observable payload of a running task.
type Progress struct {
	Step              Step `json:"current_step"`
	Percentage        int  `json:"progress_percentage"`
	ProcessedArticles int  `json:"processed_articles"`
	ProcessedMedia    int  `json:"processed_media"`
	ArticleLimit      int  `json:"article_limit"`
	MediaCount        int  `json:"media_count"`
}

// SyncResult is stored on the task when a run completes.
type SyncResult struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	ProcessedCount  int    `json:"processed_count"`
	NewArticles     int    `json:"new_articles"`
	UpdatedArticles int    `json:"updated_articles"`
	FailedArticles  int    `json:"failed_articles"`
	SkippedArticles int    `json:"skipped_articles"`
	MediaRequested  bool   `json:"media_requested"`
	MediaCount      int    `json:"media_count"`
	SyncType        string `json:"sync_type"`
	SyncScope       string `json:"sync_scope"`
	ArticleLimit    int    `json:"article_limit"`
	ForceSync       bool   `json:"force_sync"`
	ForceDownload   bool   `json:"force_download"`
}

// Outcome classifies how a sync run ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryableFailure
	OutcomeTerminalFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	case OutcomeTerminalFailure:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

// CallbackPayload is posted to a request's callback_url.
type CallbackPayload struct {
	URL       string      `json:"-"`
	TaskID    string      `json:"task_id"`
	AccountID string      `json:"account_id"`
	Status    TaskStatus  `json:"status"`
	Result    *SyncResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// MediaDownloadJob is handed to the media download workers.
type MediaDownloadJob struct {
	JobID       string    `json:"job_id"`
	TaskID      string    `json:"task_id"`
	URLs        []string  `json:"urls"`
	RequestedAt time.Time `json:"requested_at"`
}
