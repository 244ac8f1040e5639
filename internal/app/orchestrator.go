package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tagscope/tagscope/internal/audit"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/store"
)

type JobEventType string

const (
	JobEventStatus JobEventType = "status"
	JobEventResult JobEventType = "result"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// JobEvent is one progress update streamed to clients watching a job.
type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// Result is set on the final event of a successful job.
	Result *model.ScanResult `json:"result,omitempty"`
}

// Job is one asynchronous audit of a single URL.
type Job struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Status    JobStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at,omitzero"`
	Result    *model.ScanResult `json:"result,omitempty"`

	// StoreID references the persisted report when a history store is wired.
	StoreID string `json:"store_id,omitempty"`

	Events chan JobEvent `json:"-"`
}

// Orchestrator runs audit jobs and tracks their lifecycle. Each job owns its
// own scan; the only shared state is the job table guarded by jobsMu.
type Orchestrator struct {
	cfg     *Config
	auditor *audit.Auditor
	history *store.Store // optional; nil disables persistence
	logger  logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
}

// NewOrchestrator ties together config, auditor, history store and logger.
// history may be nil.
func NewOrchestrator(cfg *Config, auditor *audit.Auditor, history *store.Store, logger interfaces.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		cfg:        cfg,
		auditor:    auditor,
		history:    history,
		logger:     logger,
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}
}

// History returns the scan-history store, or nil when persistence is off.
func (o *Orchestrator) History() *store.Store {
	return o.history
}

func (o *Orchestrator) emitJobEvent(job *Job, ev JobEvent) {
	if job == nil || job.Events == nil {
		return
	}
	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) setStatus(jobID string, status JobStatus, errMsg string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	job := o.jobs[jobID]
	if job == nil {
		return nil
	}
	job.Status = status
	if errMsg != "" {
		job.Error = errMsg
	}
	return job
}

// StartAuditJob begins an asynchronous audit of url and returns immediately.
// Progress flows over the job's Events channel; the channel closes when the
// job reaches a terminal state.
func (o *Orchestrator) StartAuditJob(ctx context.Context, url string, opts model.Options) (*Job, error) {
	jobID := uuid.New().String()

	job := &Job{
		ID:        jobID,
		URL:       url,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}

	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	o.jobs[jobID] = job
	o.jobCancels[jobID] = cancel
	o.jobsMu.Unlock()

	o.emitJobEvent(job, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer func() {
			o.jobsMu.Lock()
			if j := o.jobs[jobID]; j != nil {
				j.EndedAt = time.Now().UTC()
			}
			delete(o.jobCancels, jobID)
			o.jobsMu.Unlock()

			// Close events channel so streaming loops terminate cleanly.
			close(job.Events)
		}()

		o.setStatus(jobID, JobRunning, "")
		o.emitJobEvent(job, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

		res, err := o.auditor.Scan(jobCtx, url, opts)
		if err != nil {
			status := JobFailed
			msg := err.Error()
			if jobCtx.Err() == context.Canceled {
				status = JobCanceled
				msg = jobCtx.Err().Error()
			}
			o.setStatus(jobID, status, msg)
			o.emitJobEvent(job, JobEvent{JobID: jobID, Type: JobEventStatus, Status: status, Error: msg})
			o.logger.Warn("audit job failed",
				logging.Field{Key: "job_id", Value: jobID},
				logging.Field{Key: "url", Value: url},
				logging.Field{Key: "error", Value: msg})
			return
		}

		o.jobsMu.Lock()
		job.Result = res
		o.jobsMu.Unlock()

		if o.history != nil {
			if id, serr := o.history.Save(jobCtx, res); serr != nil {
				o.logger.Warn("persisting scan result",
					logging.Field{Key: "job_id", Value: jobID},
					logging.Field{Key: "error", Value: serr.Error()})
			} else {
				o.jobsMu.Lock()
				job.StoreID = id
				o.jobsMu.Unlock()
			}
		}

		o.setStatus(jobID, JobDone, "")
		o.emitJobEvent(job, JobEvent{JobID: jobID, Type: JobEventResult, Status: JobDone, Result: res})
		o.logger.Info("audit job done",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "scripts", Value: len(res.Scripts)})
	}()

	return job, nil
}

// GetJob returns a job by ID, or nil.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobs[jobID]
}

// ListJobs returns all known jobs in no particular order.
func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	out := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j)
	}
	return out
}

// CancelJob aborts a running job. Canceling an unknown or finished job is a
// no-op.
func (o *Orchestrator) CancelJob(jobID string) {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels outstanding jobs and releases the auditor.
func (o *Orchestrator) Close() {
	o.jobsMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.jobCancels))
	for _, c := range o.jobCancels {
		cancels = append(cancels, c)
	}
	o.jobsMu.Unlock()

	for _, c := range cancels {
		c()
	}
	if o.auditor != nil {
		_ = o.auditor.Close()
	}
}
