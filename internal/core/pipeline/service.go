package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"textbridge/internal/config"
	"textbridge/internal/core/correlate"
	"textbridge/internal/core/discover"
	"textbridge/internal/core/export"
	"textbridge/internal/core/job"
	"textbridge/internal/core/notify"
	"textbridge/internal/core/rebuild"
	"textbridge/internal/core/write"
	"textbridge/internal/logger"
	"textbridge/internal/platform/tasks"
	"textbridge/internal/platform/translate"
)

var langRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2})?$`)

// Request is the post-validation record consumed by stage A.
type Request struct {
	Lib         string   `json:"lib"`
	Path        string   `json:"path"`
	TargetLib   string   `json:"targetLib"`
	TargetPath  string   `json:"targetPath"`
	Language    string   `json:"language"`
	NotifyAddrs []string `json:"notifyAddrs,omitempty"`
}

type submitPayload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}

type completePayload struct {
	BatchJobID string `json:"batch_job_id"`
}

type Service struct {
	jobs      *job.Service
	tasks     *tasks.Client
	discover  *discover.Service
	export    *export.Service
	translate *translate.Client
	correlate *correlate.Service
	rebuild   *rebuild.Service
	write     *write.Service
	notify    *notify.Service
	cfg       config.Config
	log       *logger.Logger
}

func New(jobs *job.Service, taskc *tasks.Client, disc *discover.Service, exp *export.Service,
	trans *translate.Client, corr *correlate.Service, reb *rebuild.Service, wr *write.Service,
	not *notify.Service, cfg config.Config) *Service {
	return &Service{
		jobs: jobs, tasks: taskc, discover: disc, export: exp, translate: trans,
		correlate: corr, rebuild: reb, write: wr, notify: not, cfg: cfg,
		log: logger.New("Pipeline"),
	}
}

// Enqueue validates the request, records a pending job and queues stage A.
func (s *Service) Enqueue(ctx context.Context, req Request) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}
	id := uuid.New().String()
	if err := s.jobs.Put(ctx, &job.Job{
		JobID:      id,
		Status:     job.StatusPending,
		SourceLib:  req.Lib,
		SourcePath: req.Path,
		TargetLib:  req.TargetLib,
		TargetPath: req.TargetPath,
		Language:   req.Language,
	}); err != nil {
		return "", err
	}
	payload, _ := json.Marshal(submitPayload{JobID: id, Request: req})
	if err := s.tasks.Enqueue(asynq.NewTask(tasks.TaskTypeSubmit, payload), "default", s.cfg.TaskMaxRetries); err != nil {
		return "", err
	}
	s.log.LogInfof("enqueued translation %s for %s/%s -> %s (%s)", id, req.Lib, req.Path, req.TargetLib, req.Language)
	return id, nil
}

// Validate checks the post-validation record's required fields.
func Validate(req Request) error {
	if req.Lib == "" || req.Path == "" {
		return fmt.Errorf("source lib and path are required")
	}
	if req.TargetLib == "" || req.TargetPath == "" {
		return fmt.Errorf("destination lib and path are required")
	}
	if !langRe.MatchString(req.Language) {
		return fmt.Errorf("malformed target language code %q", req.Language)
	}
	return nil
}

// EnqueueCompletion queues stage B for an externally delivered
// job-completed event.
func (s *Service) EnqueueCompletion(ctx context.Context, batchJobID string) error {
	if batchJobID == "" {
		return fmt.Errorf("completion event carries no job id")
	}
	payload, _ := json.Marshal(completePayload{BatchJobID: batchJobID})
	return s.tasks.Enqueue(asynq.NewTask(tasks.TaskTypeComplete, payload), "default", s.cfg.TaskMaxRetries)
}

// HandleSubmitTask runs stage A: discover -> fetch/transform -> export ->
// submit. A payload that fails to parse is returned to the queue; once
// parsed, failures mark the job failed and are not retried.
func (s *Service) HandleSubmitTask(ctx context.Context, task *asynq.Task) error {
	var p submitPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	if err := s.jobs.SetStatus(ctx, p.JobID, job.StatusProcessing); err != nil {
		s.log.LogWarnf("status update failed for %s: %v", p.JobID, err)
	}

	req := p.Request
	tree, err := s.discover.DiscoverTree(ctx, req.Lib, req.Path)
	if err != nil {
		return s.fail(ctx, p.JobID, fmt.Errorf("discovery: %w", err))
	}
	if err := s.discover.FetchContents(ctx, tree); err != nil {
		return s.fail(ctx, p.JobID, fmt.Errorf("content fetch: %w", err))
	}

	rec, err := s.export.Export(ctx, tree, export.Target{
		Lib:         req.TargetLib,
		Path:        req.TargetPath,
		NotifyAddrs: req.NotifyAddrs,
	})
	if err != nil {
		// A partial export must never be submitted.
		return s.fail(ctx, p.JobID, fmt.Errorf("export: %w", err))
	}

	jobName := export.JobPrefix(rec.Lib, rec.ID)
	batchID, err := s.translate.SubmitBatch(ctx, translate.SubmitRequest{
		JobName:      jobName,
		InputBucket:  s.cfg.ContentBucket,
		InputPrefix:  jobName + "/",
		OutputBucket: s.cfg.OutputBucket,
		SourceLang:   s.cfg.SourceLang,
		TargetLang:   req.Language,
	})
	if err != nil {
		// The export stays reusable for a retry.
		return s.fail(ctx, p.JobID, fmt.Errorf("submission: %w", err))
	}

	if err := s.jobs.LinkBatch(ctx, jobName, p.JobID); err != nil {
		s.log.LogWarnf("batch link failed for %s: %v", jobName, err)
	}
	if j, err := s.jobs.Get(ctx, p.JobID); err == nil {
		j.Status = job.StatusTranslating
		j.BatchJobID = batchID
		j.Summary = &job.Summary{PagesDiscovered: rec.PageCount, PagesExported: rec.PageCount}
		if err := s.jobs.Put(ctx, j); err != nil {
			s.log.LogWarnf("status update failed for %s: %v", p.JobID, err)
		}
	}
	s.log.LogSuccessf("stage A complete for %s: batch job %s over %d pages", p.JobID, batchID, rec.PageCount)
	return nil
}

// HandleCompleteTask runs stage B: correlate -> rebuild -> write -> notify.
// Correlation and reconstruction failures are fatal for the invocation and
// not retried; they surface only in logs.
func (s *Service) HandleCompleteTask(ctx context.Context, task *asynq.Task) error {
	var p completePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}

	rec, manifest, err := s.correlate.Resolve(ctx, p.BatchJobID)
	if err != nil {
		s.log.LogErrorf("correlation failed for batch job %s: %v", p.BatchJobID, err)
		return nil
	}
	jobName := export.JobPrefix(rec.Lib, rec.ID)

	root, err := s.rebuild.Rebuild(ctx, rec, manifest)
	if err != nil {
		s.failBatch(ctx, jobName, fmt.Errorf("reconstruction: %w", err))
		return nil
	}

	created, err := s.write.WriteTree(ctx, root, rec.TargetLib, rec.TargetPath, jobName)
	if err != nil {
		s.failBatch(ctx, jobName, fmt.Errorf("write: %w", err))
		return nil
	}

	subject := fmt.Sprintf("Translation of %s finished", jobName)
	body := fmt.Sprintf("%d of %d pages were recreated under %s/%s (%s -> %s).",
		created, rec.PageCount, rec.TargetLib, rec.TargetPath,
		manifest.SourceLanguageCode, manifest.TargetLanguageCode)
	if err := s.notify.SendCompletion(ctx, rec.NotifyAddrs, subject, body); err != nil {
		s.log.LogWarnf("completion notice failed for %s: %v", jobName, err)
	}

	if jobID, err := s.jobs.ResolveBatch(ctx, jobName); err == nil {
		if j, err := s.jobs.Get(ctx, jobID); err == nil {
			j.Status = job.StatusCompleted
			if j.Summary == nil {
				j.Summary = &job.Summary{}
			}
			j.Summary.PagesCreated = created
			if err := s.jobs.Put(ctx, j); err != nil {
				s.log.LogWarnf("status update failed for %s: %v", jobID, err)
			}
		}
	}
	s.log.LogSuccessf("stage B complete for %s: %d pages created", jobName, created)
	return nil
}

func (s *Service) fail(ctx context.Context, jobID string, cause error) error {
	s.log.LogError("stage A failed for "+jobID, cause)
	if err := s.jobs.Fail(ctx, jobID, cause); err != nil {
		s.log.LogWarnf("failure record update failed for %s: %v", jobID, err)
	}
	return nil
}

func (s *Service) failBatch(ctx context.Context, batchName string, cause error) {
	s.log.LogError("stage B failed for "+batchName, cause)
	if jobID, err := s.jobs.ResolveBatch(ctx, batchName); err == nil {
		if err := s.jobs.Fail(ctx, jobID, cause); err != nil {
			s.log.LogWarnf("failure record update failed for %s: %v", jobID, err)
		}
	}
}
