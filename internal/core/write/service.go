package write

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"textbridge/internal/core/page"
	"textbridge/internal/logger"
	"textbridge/internal/platform/storage"
)

// Property names with special handling on re-attach.
const (
	propOverview = "page.overview"
	// propGuideTabs holds escaped JSON; its value must be re-encoded as a
	// JSON string when set on the destination.
	propGuideTabs = "page.guidetabs"
)

// Tags whose pages carry a thumbnail asset worth copying.
var thumbnailTags = []string{"article:topic-category", "article:topic-guide"}

// DestAPI is the slice of the content-platform client the writer uses on
// the destination side.
type DestAPI interface {
	CreatePage(ctx context.Context, lib, path, title, contents string) error
	SetTags(ctx context.Context, lib, path string, tags []string) error
	SetProperty(ctx context.Context, lib, path, name, value string) error
	PutThumbnail(ctx context.Context, lib, path string, data []byte) error
}

// SourceAPI reads thumbnail assets from the source platform.
type SourceAPI interface {
	GetThumbnail(ctx context.Context, lib, id string) ([]byte, error)
}

type Service struct {
	dest   DestAPI
	src    SourceAPI
	store  storage.Store
	bucket string
	fanout int
	pause  time.Duration
	log    *logger.Logger
}

func New(dest DestAPI, src SourceAPI, store storage.Store, contentBucket string, fanout int, pause time.Duration) *Service {
	if fanout < 1 {
		fanout = 1
	}
	return &Service{dest: dest, src: src, store: store, bucket: contentBucket, fanout: fanout, pause: pause, log: logger.New("Write")}
}

// WriteTree recreates the tree on the destination platform depth-first.
// A failed subtree root aborts only that subtree; siblings continue.
// Returns the number of pages created.
func (s *Service) WriteTree(ctx context.Context, root *page.Node, targetLib, targetPath, jobPrefix string) (int, error) {
	var created int64
	if err := s.writeNode(ctx, root, targetLib, targetPath, jobPrefix, &created); err != nil {
		return int(created), err
	}
	s.log.LogSuccessf("created %d of %d pages under %s/%s", created, page.Count(root), targetLib, targetPath)
	return int(created), nil
}

func (s *Service) writeNode(ctx context.Context, n *page.Node, lib, parentPath, jobPrefix string, created *int64) error {
	full := PathSegment(n)
	if parentPath != "" {
		full = strings.TrimSuffix(parentPath, "/") + "/" + full
	}

	if err := s.dest.CreatePage(ctx, lib, full, displayTitle(n), n.Contents); err != nil {
		return fmt.Errorf("create %s/%s: %w", lib, full, err)
	}
	atomic.AddInt64(created, 1)
	time.Sleep(s.pause)

	// Post-write steps are independent and best-effort: one failing must
	// not affect the others or the subtree result.
	steps := []struct {
		name string
		fn   func() error
	}{
		{"tags", func() error { return s.attachTags(ctx, n, lib, full) }},
		{"properties", func() error { return s.attachProps(ctx, n, lib, full) }},
		{"thumbnail", func() error { return s.copyThumbnail(ctx, n, lib, full, jobPrefix) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.log.LogWarnf("%s failed for %s/%s: %v", step.name, lib, full, err)
		}
		time.Sleep(s.pause)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for _, sp := range n.Subpages {
		sp := sp
		g.Go(func() error {
			if err := s.writeNode(gctx, sp, lib, full, jobPrefix, created); err != nil {
				s.log.LogErrorf("subtree %s/%s dropped: %v", sp.Lib, sp.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// PathSegment computes the destination path segment for one node: the
// trimmed title with underscores for spaces, prefixed with the section
// number when one was recovered. A "number: " prefix already present in
// the title is stripped first so it is never duplicated.
func PathSegment(n *page.Node) string {
	title := strings.TrimSpace(n.Title)
	if n.NumPrefix != "" {
		title = strings.TrimPrefix(title, n.NumPrefix+": ")
		title = n.NumPrefix + ": " + title
	}
	return strings.ReplaceAll(title, " ", "_")
}

func displayTitle(n *page.Node) string {
	return strings.TrimSpace(n.Title)
}

func (s *Service) attachTags(ctx context.Context, n *page.Node, lib, path string) error {
	tags := append([]string{}, n.Tags...)
	tags = append(tags, "origin:"+n.Lib+"-"+n.ID)
	return s.dest.SetTags(ctx, lib, path, tags)
}

func (s *Service) attachProps(ctx context.Context, n *page.Node, lib, path string) error {
	var firstErr error
	for _, p := range n.Props {
		value := p.Value
		if p.Name == propGuideTabs {
			b, err := json.Marshal(p.Value)
			if err != nil {
				s.log.LogWarnf("re-encode %s for %s/%s: %v", propGuideTabs, lib, path, err)
				continue
			}
			value = string(b)
		}
		if err := s.dest.SetProperty(ctx, lib, path, p.Name, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if n.Summary != "" {
		if err := s.dest.SetProperty(ctx, lib, path, propOverview, n.Summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) copyThumbnail(ctx context.Context, n *page.Node, lib, path, jobPrefix string) error {
	if !hasAnyTag(n.Tags, thumbnailTags) {
		return nil
	}
	data, err := s.src.GetThumbnail(ctx, n.Lib, n.ID)
	if err != nil {
		return fmt.Errorf("read source thumbnail: %w", err)
	}
	// Keep a storage copy alongside the job's other artifacts.
	assetKey := jobPrefix + "/assets/" + n.Lib + "-" + n.ID + ".png"
	if err := s.store.Upload(ctx, s.bucket, assetKey, data, "image/png"); err != nil {
		s.log.LogWarnf("asset copy failed for %s: %v", assetKey, err)
	}
	return s.dest.PutThumbnail(ctx, lib, path, data)
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
