package backtest

import "time"

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusPartial = "partial"
	JobStatusFailed  = "failed"
)

// FetchParams 是一次拉取任务的输入。
type FetchParams struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Exchange  string `json:"exchange,omitempty"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
}

// Gap 表示本地数据中缺失的连续区间（open_time 闭区间）。
type Gap struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// IntegrityReport 汇总某区间内应有/已有的 K 线与缺口。
type IntegrityReport struct {
	Expected int64 `json:"expected"`
	Present  int64 `json:"present"`
	Gaps     []Gap `json:"gaps,omitempty"`
}

func (r IntegrityReport) Complete() bool {
	return r.Expected > 0 && r.Present >= r.Expected && len(r.Gaps) == 0
}

// FetchJob 跟踪一次拉取任务的进度。
type FetchJob struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Params    FetchParams `json:"params"`
	Total     int64       `json:"total"`
	Completed int64       `json:"completed"`
	Missing   []Gap       `json:"missing,omitempty"`
	Warnings  []string    `json:"warnings,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (j *FetchJob) copy() FetchJob {
	out := *j
	out.Missing = append([]Gap(nil), j.Missing...)
	out.Warnings = append([]string(nil), j.Warnings...)
	return out
}
