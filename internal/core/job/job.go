package job

import (
	"context"
	"fmt"

	rds "textbridge/internal/platform/redis"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusProcessing  Status = "processing"
	StatusTranslating Status = "translating"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Job is the redis-backed status record for one translation request. It is
// the requester's only window across the asynchronous boundary.
type Job struct {
	JobID       string   `json:"job_id"`
	Status      Status   `json:"status"`
	SourceLib   string   `json:"source_lib"`
	SourcePath  string   `json:"source_path"`
	TargetLib   string   `json:"target_lib"`
	TargetPath  string   `json:"target_path"`
	Language    string   `json:"language"`
	BatchJobID  string   `json:"batch_job_id,omitempty"`
	Error       string   `json:"error,omitempty"`
	Summary     *Summary `json:"summary,omitempty"`
}

// Summary reports page counts per stage.
type Summary struct {
	PagesDiscovered int `json:"pages_discovered,omitempty"`
	PagesExported   int `json:"pages_exported,omitempty"`
	PagesCreated    int `json:"pages_created,omitempty"`
}

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &j, nil
}

func (s *Service) Put(ctx context.Context, j *Job) error {
	return s.redis.CacheSet(ctx, key(j.JobID), j, ttl(j.Status))
}

func (s *Service) SetStatus(ctx context.Context, jobID string, status Status) error {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	j.Status = status
	return s.Put(ctx, j)
}

func (s *Service) Fail(ctx context.Context, jobID string, cause error) error {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	j.Status = StatusFailed
	j.Error = cause.Error()
	return s.Put(ctx, j)
}

// LinkBatch maps the deterministic batch-job name back to the request's
// job id, so stage B can update status after the asynchronous boundary.
func (s *Service) LinkBatch(ctx context.Context, batchName, jobID string) error {
	return s.redis.CacheSet(ctx, nameKey(batchName), jobID, 7*24*3600)
}

func (s *Service) ResolveBatch(ctx context.Context, batchName string) (string, error) {
	var jobID string
	if err := s.redis.CacheGet(ctx, nameKey(batchName), &jobID); err != nil {
		return "", fmt.Errorf("no job linked to batch %s", batchName)
	}
	return jobID, nil
}

func key(id string) string       { return "translation:" + id }
func nameKey(name string) string { return "translation:batch:" + name }

func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed {
		return 7 * 24 * 3600
	}
	// Pending work can sit at the translation service for days.
	return 14 * 24 * 3600
}
