package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rows, r.err }

// recordingExecutor はExecContextに渡されたクエリと引数を記録する。
type recordingExecutor struct {
	calls  int
	query  string
	args   []any
	result sql.Result
	err    error
}

func (e *recordingExecutor) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	e.calls++
	e.query = query
	e.args = args
	return e.result, e.err
}

func newJob(exec Executor) (*CleanupJob, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewCleanupJob(exec, logger), &buf
}

// lastLogEntry は最後に出力されたJSONログ1行を返す。
func lastLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("ログがJSONではない: %v\n%s", err, buf.String())
	}
	return entry
}

func TestCleanupJob_Run_DeletesExpiredNotifications(t *testing.T) {
	tests := []struct {
		name          string
		retentionDays int
		deleted       int64
		wantInterval  string
	}{
		{"default retention", DefaultRetentionDays, 12, "90 days"},
		{"custom retention", 7, 0, "7 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &recordingExecutor{result: stubResult{rows: tt.deleted}}
			job, buf := newJob(exec)
			job.RetentionDays = tt.retentionDays

			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if !strings.Contains(exec.query, "DELETE FROM notifications") || !strings.Contains(exec.query, "created_at") {
				t.Errorf("query = %q", exec.query)
			}
			if len(exec.args) != 1 || exec.args[0] != tt.wantInterval {
				t.Errorf("args = %v, want [%q]", exec.args, tt.wantInterval)
			}

			entry := lastLogEntry(t, buf)
			if entry["deleted_count"] != float64(tt.deleted) {
				t.Errorf("deleted_count = %v, want %d", entry["deleted_count"], tt.deleted)
			}
			if entry["retention_days"] != float64(tt.retentionDays) {
				t.Errorf("retention_days = %v, want %d", entry["retention_days"], tt.retentionDays)
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("duration_ms がログに含まれていない")
			}
		})
	}
}

func TestCleanupJob_Run_NeverTouchesConfirmations(t *testing.T) {
	exec := &recordingExecutor{result: stubResult{}}
	job, _ := newJob(exec)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Contains(exec.query, "medication_confirmations") {
		t.Errorf("服薬確認を削除してはならない: %s", exec.query)
	}
}

func TestCleanupJob_Run_Errors(t *testing.T) {
	tests := []struct {
		name     string
		exec     *recordingExecutor
		wantText string
	}{
		{"exec fails", &recordingExecutor{err: sql.ErrConnDone}, "sql: connection is already closed"},
		{"rows affected fails", &recordingExecutor{result: stubResult{err: errors.New("driver does not support")}}, "driver does not support"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, buf := newJob(tt.exec)

			err := job.Run(context.Background())
			if err == nil {
				t.Fatal("Run() should return an error")
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantText)
			}
			if lastLogEntry(t, buf)["level"] != "ERROR" {
				t.Errorf("ERRORレベルのログが記録されていない: %s", buf.String())
			}
		})
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	exec := &recordingExecutor{result: stubResult{rows: 1}}
	job, _ := newJob(exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル済みコンテキストで Start が終了しなかった")
	}
	if exec.calls != 1 {
		t.Errorf("ExecContext calls = %d, want 1 (起動直後の実行)", exec.calls)
	}
}
