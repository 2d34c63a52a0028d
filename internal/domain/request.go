package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SyncRequest is the inbound message that triggers one sync run.
type SyncRequest struct {
	TaskID        string `json:"task_id" validate:"required"`
	AccountID     string `json:"account_id" validate:"required"`
	SyncType      string `json:"sync_type" validate:"required"`
	SyncScope     string `json:"sync_scope" validate:"required"`
	ArticleLimit  int    `json:"article_limit" validate:"gt=0"`
	BatchSize     int    `json:"batch_size" validate:"gt=0"`
	ForceSync     bool   `json:"force_sync"`
	ForceDownload bool   `json:"force_download"`
	ProcessMedia  bool   `json:"process_media"`
	CallbackURL   string `json:"callback_url,omitempty" validate:"omitempty,http_url"`
}

// Validate returns an error wrapping ErrInvalidRequest when a required
// field is missing or malformed.
func (r SyncRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (r SyncRequest) IsValid() bool {
	return r.Validate() == nil
}
