package rebuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"textbridge/internal/core/export"
	"textbridge/internal/core/page"
	"textbridge/internal/core/transform"
	"textbridge/internal/platform/storage"
	"textbridge/internal/platform/translate"
)

// Builds the stored record and translated outputs for a two-node tree:
// root chem-10 with one child chem-11, "translated" by swapping titles and
// bodies for Spanish text while the provenance markers survive intact.
func twoNodeFixture(t *testing.T) (*storage.Memory, *page.JobRecord, *translate.Manifest) {
	t.Helper()
	store := storage.NewMemory()

	rec := &page.JobRecord{
		Lib: "chem", ID: "10", PageCount: 2,
		TargetLib: "espanol", TargetPath: "Translated",
		AllPages: []page.Meta{
			{Lib: "chem", ID: "10", Path: "Book", Title: "Book", Root: true, Tags: []string{"coverpage:yes"}},
			{Lib: "chem", ID: "11", Path: "Book/1%3AOne", Title: "1: One", Parent: "10",
				Tags: []string{"article:topic"}, NumPrefix: "1", TitleExtract: "One"},
		},
	}

	outputs := map[string]struct {
		lib, id, title, body string
	}{
		"job/es.chem-10.html": {"chem", "10", "Libro", "<p>cuerpo</p>"},
		"job/es.chem-11.html": {"chem", "11", "1: Uno", "<p>uno</p>"},
	}
	manifest := &translate.Manifest{SourceLanguageCode: "en", TargetLanguageCode: "es"}
	for key, o := range outputs {
		html := transform.Provenance(o.lib, o.id, o.title, "") + o.body
		require.NoError(t, store.Upload(context.Background(), "output", key, []byte(html), "text/html"))
		manifest.Details = append(manifest.Details, translate.FilePair{
			SourceFile: export.ContentKey("chem-10", o.lib, o.id),
			TargetFile: key,
		})
	}
	return store, rec, manifest
}

func TestRebuild_TwoNodeTree(t *testing.T) {
	store, rec, manifest := twoNodeFixture(t)
	svc := New(store, "output")

	root, err := svc.Rebuild(context.Background(), rec, manifest)
	require.NoError(t, err)

	require.True(t, root.Root)
	require.Equal(t, "Libro", root.Title, "translated title wins")
	require.Contains(t, root.Contents, "cuerpo")
	require.Equal(t, []string{"coverpage:yes"}, root.Tags, "original tags preserved")
	require.Equal(t, "Book", root.Path, "original path preserved")

	require.Len(t, root.Subpages, 1)
	child := root.Subpages[0]
	require.Equal(t, "11", child.ID)
	require.Equal(t, "10", child.Parent)
	require.Equal(t, "1: Uno", child.Title)
	require.Equal(t, "1", child.NumPrefix)
	require.Contains(t, child.Contents, "uno")
}

func TestRebuild_UnmatchedFragmentDropped(t *testing.T) {
	store, rec, manifest := twoNodeFixture(t)

	// An output file whose identity matches nothing in the stored record.
	stray := transform.Provenance("chem", "99", "Stray", "")
	require.NoError(t, store.Upload(context.Background(), "output", "job/es.chem-99.html", []byte(stray), "text/html"))
	manifest.Details = append(manifest.Details, translate.FilePair{SourceFile: "chem-10/chem-99.html", TargetFile: "job/es.chem-99.html"})

	svc := New(store, "output")
	root, err := svc.Rebuild(context.Background(), rec, manifest)
	require.NoError(t, err)
	require.Equal(t, 2, page.Count(root), "stray fragment must be dropped, not attached")
}

func TestRebuild_MissingOutputFileIsNotFatal(t *testing.T) {
	store, rec, manifest := twoNodeFixture(t)
	manifest.Details = append(manifest.Details, translate.FilePair{SourceFile: "chem-10/chem-12.html", TargetFile: "job/gone.html"})

	svc := New(store, "output")
	root, err := svc.Rebuild(context.Background(), rec, manifest)
	require.NoError(t, err)
	require.Equal(t, 2, page.Count(root))
}

func TestRebuild_NoRootIsFatal(t *testing.T) {
	store, rec, manifest := twoNodeFixture(t)
	// Drop the root's output file so only the child fragment remains.
	manifest.Details = manifest.Details[:0]
	manifest.Details = append(manifest.Details, translate.FilePair{SourceFile: "chem-10/chem-11.html", TargetFile: "job/es.chem-11.html"})

	svc := New(store, "output")
	_, err := svc.Rebuild(context.Background(), rec, manifest)
	require.ErrorIs(t, err, page.ErrNoRoot)
}
