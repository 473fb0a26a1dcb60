package correlate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"textbridge/internal/core/export"
	"textbridge/internal/core/page"
	"textbridge/internal/logger"
	"textbridge/internal/platform/storage"
	"textbridge/internal/platform/translate"
)

var (
	// ErrBadManifest covers a missing, empty or undecodable job manifest.
	ErrBadManifest = errors.New("malformed job manifest")
	// ErrNoRecord means the metadata record the exporter should have
	// written is missing or unreadable: the export-before-submit
	// invariant was violated or objects were deleted out-of-band.
	ErrNoRecord = errors.New("job metadata record unavailable")
)

// JobAPI is the slice of the translation client the correlator consumes.
type JobAPI interface {
	DescribeJob(ctx context.Context, jobID string) (translate.Job, error)
}

type Service struct {
	jobs          JobAPI
	store         storage.Store
	contentBucket string
	outputBucket  string
	log           *logger.Logger
}

func New(jobs JobAPI, store storage.Store, contentBucket, outputBucket string) *Service {
	return &Service{jobs: jobs, store: store, contentBucket: contentBucket, outputBucket: outputBucket, log: logger.New("Correlate")}
}

// Resolve links a completed-job notification back to its original request
// context. Identity comes from the manifest's input path, never from the
// caller-supplied id, which is untrusted. Failures here are fatal for the
// invocation and never retried.
func (s *Service) Resolve(ctx context.Context, jobID string) (*page.JobRecord, *translate.Manifest, error) {
	job, err := s.jobs.DescribeJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: %w", jobID, err)
	}

	// The describe response names the bucket the job actually wrote to;
	// the configured bucket is only the fallback.
	bucket := job.OutputBucket
	if bucket == "" {
		bucket = s.outputBucket
	}
	raw, err := s.store.Download(ctx, bucket, job.ManifestKey)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: read manifest %s: %w: %v", jobID, job.ManifestKey, ErrBadManifest, err)
	}
	var manifest translate.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, nil, fmt.Errorf("job %s: decode manifest: %w: %v", jobID, ErrBadManifest, err)
	}
	if len(manifest.Details) == 0 {
		return nil, nil, fmt.Errorf("job %s: manifest lists no files: %w", jobID, ErrBadManifest)
	}

	lib, id, err := RootIdentity(manifest.Details[0].SourceFile)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: %w: %v", jobID, ErrBadManifest, err)
	}

	rec, err := s.record(ctx, lib, id)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	s.log.LogInfof("job %s correlated to %s-%s (%d pages)", jobID, lib, id, rec.PageCount)
	return rec, &manifest, nil
}

func (s *Service) record(ctx context.Context, lib, id string) (*page.JobRecord, error) {
	raw, err := s.store.Download(ctx, s.contentBucket, export.MetadataKey(lib, id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecord, err)
	}
	var rec page.JobRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrNoRecord, err)
	}
	return &rec, nil
}

// RootIdentity derives the root (lib, id) from a manifest input file path:
// the leading "<lib>-<id>/" prefix the exporter wrote. The split is on the
// last hyphen so library names containing hyphens keep working; ids never
// do. Both halves must be non-empty.
func RootIdentity(sourceFile string) (lib, id string, err error) {
	prefix := sourceFile
	if i := strings.Index(prefix, "/"); i >= 0 {
		prefix = prefix[:i]
	}
	cut := strings.LastIndex(prefix, "-")
	if cut <= 0 || cut == len(prefix)-1 {
		return "", "", fmt.Errorf("input path %q does not decode to a lib-id prefix", sourceFile)
	}
	return prefix[:cut], prefix[cut+1:], nil
}
