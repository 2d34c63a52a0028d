package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"wechat_sync/internal/domain"
)

func TestPrintTask(t *testing.T) {
	next := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	task := &domain.SyncTask{
		ID:          "t1",
		AccountID:   "a1",
		Status:      domain.TaskRetrying,
		Progress:    domain.Progress{Step: domain.StepProcessingArticles, Percentage: 46},
		RetryCount:  1,
		MaxRetries:  3,
		NextRetryAt: &next,
		Error:       "fetch page at offset 0: timeout",
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printTask(cmd, task)

	assert.Contains(t, out.String(), "Status:    retrying")
	assert.Contains(t, out.String(), "Step:      processing_articles (46%)")
	assert.Contains(t, out.String(), "Retries:   1/3")
	assert.Contains(t, out.String(), "Next try:  2024-03-01 08:30:00")
	assert.Contains(t, out.String(), "Error:     fetch page at offset 0: timeout")
	assert.NotContains(t, out.String(), "Result:")
}

func TestSyncCommandRequiresAccount(t *testing.T) {
	assert.Error(t, syncCmd.Args(syncCmd, nil))
	assert.NoError(t, syncCmd.Args(syncCmd, []string{"a1"}))
}
