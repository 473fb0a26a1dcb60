package rebuild

import (
	"context"
	"fmt"

	"textbridge/internal/core/page"
	"textbridge/internal/core/transform"
	"textbridge/internal/logger"
	"textbridge/internal/platform/storage"
	"textbridge/internal/platform/translate"
)

type Service struct {
	store        storage.Store
	outputBucket string
	log          *logger.Logger
}

func New(store storage.Store, outputBucket string) *Service {
	return &Service{store: store, outputBucket: outputBucket, log: logger.New("Rebuild")}
}

// Rebuild reads every translated output file, matches each fragment
// against the stored metadata by (lib, id), merges structure into the
// translated text, and reassembles the hierarchy by parent linkage.
// Unmatched or unreadable fragments are dropped with a warning; only a
// missing root is fatal.
func (s *Service) Rebuild(ctx context.Context, rec *page.JobRecord, manifest *translate.Manifest) (*page.Node, error) {
	index := make(map[string]page.Meta, len(rec.AllPages))
	for _, m := range rec.AllPages {
		index[page.Key(m.Lib, m.ID)] = m
	}

	var nodes []*page.Node
	for _, pair := range manifest.Details {
		raw, err := s.store.Download(ctx, s.outputBucket, pair.TargetFile)
		if err != nil {
			s.log.LogWarnf("skipping unreadable output %s: %v", pair.TargetFile, err)
			continue
		}
		frag, err := transform.ExtractFragment(string(raw))
		if err != nil {
			s.log.LogWarnf("skipping unparseable output %s: %v", pair.TargetFile, err)
			continue
		}
		meta, ok := index[page.Key(frag.Lib, frag.ID)]
		if !ok {
			s.log.LogWarnf("no metadata match for fragment %s/%s from %s, dropping", frag.Lib, frag.ID, pair.TargetFile)
			continue
		}
		nodes = append(nodes, page.Merge(frag, meta))
	}

	root, err := page.BuildTree(nodes)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s-%s: %w", rec.Lib, rec.ID, err)
	}
	if got := page.Count(root); got < rec.PageCount {
		s.log.LogWarnf("rebuilt %d of %d pages for %s-%s", got, rec.PageCount, rec.Lib, rec.ID)
	}
	return root, nil
}
