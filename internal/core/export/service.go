package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"textbridge/internal/core/page"
	"textbridge/internal/logger"
	"textbridge/internal/platform/storage"
)

type Service struct {
	store  storage.Store
	bucket string
	log    *logger.Logger
}

func New(store storage.Store, contentBucket string) *Service {
	return &Service{store: store, bucket: contentBucket, log: logger.New("Export")}
}

// JobPrefix is the deterministic storage prefix (and batch job name)
// derived from the root identity.
func JobPrefix(lib, id string) string { return lib + "-" + id }

// ContentKey is the storage key for one page's exported content.
func ContentKey(prefix, lib, id string) string {
	return prefix + "/" + lib + "-" + id + ".html"
}

// MetadataKey is the storage key for the job's metadata record.
func MetadataKey(lib, id string) string {
	prefix := JobPrefix(lib, id)
	return prefix + "/" + prefix + ".metadata.json"
}

// Target carries the destination fields captured from the original request
// into the durable job record.
type Target struct {
	Lib         string
	Path        string
	NotifyAddrs []string
}

// Export writes one object per node under the root's prefix, then writes
// the job metadata record. The record is written only after every content
// write succeeded, so its absence is usable evidence of a partial export.
func (s *Service) Export(ctx context.Context, root *page.Node, target Target) (*page.JobRecord, error) {
	prefix := JobPrefix(root.Lib, root.ID)

	var writeErr error
	page.Walk(root, func(n *page.Node) {
		if writeErr != nil {
			return
		}
		key := ContentKey(prefix, n.Lib, n.ID)
		if err := s.store.Upload(ctx, s.bucket, key, []byte(n.Contents), "text/html"); err != nil {
			writeErr = fmt.Errorf("export %s: %w", key, err)
		}
	})
	if writeErr != nil {
		return nil, writeErr
	}

	metas := page.Flatten(root)
	rec := &page.JobRecord{
		Lib:         root.Lib,
		ID:          root.ID,
		PageCount:   len(metas),
		Uploaded:    time.Now().UTC(),
		AllPages:    metas,
		TargetLib:   target.Lib,
		TargetPath:  target.Path,
		NotifyAddrs: target.NotifyAddrs,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode metadata record: %w", err)
	}
	if err := s.store.Upload(ctx, s.bucket, MetadataKey(root.Lib, root.ID), b, "application/json"); err != nil {
		return nil, fmt.Errorf("export metadata record: %w", err)
	}
	s.log.LogSuccessf("exported %d pages + metadata under %s", rec.PageCount, prefix)
	return rec, nil
}
