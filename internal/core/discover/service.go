package discover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"textbridge/internal/core/page"
	"textbridge/internal/core/transform"
	"textbridge/internal/logger"
	"textbridge/internal/platform/libapi"
)

// Property names with platform-internal meaning during fetch.
const (
	// propEditLog marks internal edit tracking and is dropped outright.
	propEditLog = "page.editlog"
	// propOverview holds the page overview; it is promoted into the
	// summary field and removed from the property list.
	propOverview = "page.overview"
)

var (
	// ErrNotCover is returned when the requested root lacks the cover
	// marker tag. Only whole covers may be translated.
	ErrNotCover = errors.New("root page is not a designated cover")
	// ErrCycle is returned when a (lib, id) pair recurs during the walk.
	// The platform is assumed to return a tree; this guard fails fast
	// instead of trusting that.
	ErrCycle = errors.New("page hierarchy contains a cycle")
)

// PageAPI is the slice of the content-platform client the discoverer reads.
type PageAPI interface {
	GetPage(ctx context.Context, lib, path string) (libapi.Page, error)
	GetSubpages(ctx context.Context, lib, id string) ([]libapi.Page, error)
	GetContents(ctx context.Context, lib, id string) (string, error)
	GetProperties(ctx context.Context, lib, id string) ([]libapi.Property, error)
}

type Service struct {
	api      PageAPI
	log      *logger.Logger
	coverTag string
	fanout   int
	pause    time.Duration
}

func New(api PageAPI, coverTag string, fanout int, pause time.Duration) *Service {
	if fanout < 1 {
		fanout = 1
	}
	return &Service{api: api, log: logger.New("Discover"), coverTag: coverTag, fanout: fanout, pause: pause}
}

// DiscoverTree walks the hierarchy rooted at (lib, path) and returns the
// full identity/metadata tree. No content is fetched here. Fails before
// any traversal if the root is not a designated cover.
func (s *Service) DiscoverTree(ctx context.Context, lib, path string) (*page.Node, error) {
	root, err := s.api.GetPage(ctx, lib, path)
	if err != nil {
		return nil, fmt.Errorf("discover root %s/%s: %w", lib, path, err)
	}
	if !hasTag(root.Tags, s.coverTag) {
		return nil, fmt.Errorf("%s/%s: %w", lib, path, ErrNotCover)
	}

	seen := &visited{ids: map[string]struct{}{}}
	node, err := s.walk(ctx, lib, root, seen, true, "")
	if err != nil {
		return nil, err
	}
	s.log.LogSuccessf("discovered %d pages under %s/%s", page.Count(node), lib, path)
	return node, nil
}

func (s *Service) walk(ctx context.Context, lib string, p libapi.Page, seen *visited, isRoot bool, parent string) (*page.Node, error) {
	if !seen.add(page.Key(lib, p.ID)) {
		return nil, fmt.Errorf("page %s/%s revisited: %w", lib, p.ID, ErrCycle)
	}

	subs, err := s.api.GetSubpages(ctx, lib, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list subpages of %s/%s: %w", lib, p.ID, err)
	}
	time.Sleep(s.pause)

	children := make([]*page.Node, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, sp := range subs {
		i, sp := i, sp
		g.Go(func() error {
			child, err := s.walk(gctx, lib, sp, seen, false, p.ID)
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	time.Sleep(s.pause)

	n := &page.Node{
		Lib:      lib,
		ID:       p.ID,
		Path:     p.Path,
		URL:      p.URL,
		Title:    p.Title,
		Tags:     p.Tags,
		Subpages: children,
		Root:     isRoot,
		Parent:   parent,
	}
	if num, title, ok := page.ParseSectionHint(p.Path); ok {
		n.NumPrefix = num
		n.TitleExtract = title
	}
	return n, nil
}

// FetchContents populates contents, summary and properties for every node,
// applying the submission transform. A single node's fetch failure is
// logged and the node proceeds with what was retrieved; it never aborts
// siblings.
func (s *Service) FetchContents(ctx context.Context, n *page.Node) error {
	s.fetchNode(ctx, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for _, sp := range n.Subpages {
		sp := sp
		g.Go(func() error { return s.FetchContents(gctx, sp) })
	}
	return g.Wait()
}

func (s *Service) fetchNode(ctx context.Context, n *page.Node) {
	if props, err := s.api.GetProperties(ctx, n.Lib, n.ID); err != nil {
		s.log.LogWarnf("properties fetch failed for %s/%s: %v", n.Lib, n.ID, err)
	} else {
		n.Props, n.Summary = filterProps(props)
	}

	contents, err := s.api.GetContents(ctx, n.Lib, n.ID)
	if err != nil {
		s.log.LogWarnf("contents fetch failed for %s/%s: %v", n.Lib, n.ID, err)
		contents = ""
	}
	n.Contents = transform.Apply(contents, n)
}

// filterProps drops edit-tracking properties and promotes the overview
// property into the summary.
func filterProps(props []libapi.Property) ([]page.Property, string) {
	var out []page.Property
	summary := ""
	for _, p := range props {
		switch p.Name {
		case propEditLog:
			continue
		case propOverview:
			summary = p.Value
		default:
			out = append(out, page.Property{Name: p.Name, Value: p.Value})
		}
	}
	return out, summary
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

type visited struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (v *visited) add(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.ids[key]; ok {
		return false
	}
	v.ids[key] = struct{}{}
	return true
}
