package correlate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"textbridge/internal/core/export"
	"textbridge/internal/core/page"
	"textbridge/internal/platform/storage"
	"textbridge/internal/platform/translate"
)

type fakeJobs struct{ job translate.Job }

func (f *fakeJobs) DescribeJob(ctx context.Context, jobID string) (translate.Job, error) {
	return f.job, nil
}

func seed(t *testing.T, store *storage.Memory, manifest translate.Manifest, rec *page.JobRecord) {
	t.Helper()
	mb, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, store.Upload(context.Background(), "output", "job-1/manifest.json", mb, "application/json"))
	if rec != nil {
		rb, err := json.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, store.Upload(context.Background(), "input", export.MetadataKey(rec.Lib, rec.ID), rb, "application/json"))
	}
}

func TestResolve(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store,
		translate.Manifest{
			SourceLanguageCode: "en", TargetLanguageCode: "es",
			Details: []translate.FilePair{{SourceFile: "chem-10/chem-10.html", TargetFile: "job-1/es.chem-10.html"}},
		},
		&page.JobRecord{Lib: "chem", ID: "10", PageCount: 1, TargetLib: "espanol", TargetPath: "T",
			AllPages: []page.Meta{{Lib: "chem", ID: "10", Root: true}}},
	)
	svc := New(&fakeJobs{job: translate.Job{JobID: "j1", OutputBucket: "output", ManifestKey: "job-1/manifest.json"}}, store, "input", "output")

	rec, manifest, err := svc.Resolve(context.Background(), "j1")
	require.NoError(t, err)
	require.Equal(t, "chem", rec.Lib)
	require.Equal(t, "10", rec.ID)
	require.Equal(t, "es", manifest.TargetLanguageCode)
}

func TestResolve_HonorsJobReportedBucket(t *testing.T) {
	store := storage.NewMemory()
	manifest := translate.Manifest{
		Details: []translate.FilePair{{SourceFile: "chem-10/chem-10.html", TargetFile: "job-1/es.chem-10.html"}},
	}
	mb, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, store.Upload(context.Background(), "elsewhere", "job-1/manifest.json", mb, "application/json"))
	rb, err := json.Marshal(&page.JobRecord{Lib: "chem", ID: "10", PageCount: 1})
	require.NoError(t, err)
	require.NoError(t, store.Upload(context.Background(), "input", export.MetadataKey("chem", "10"), rb, "application/json"))

	svc := New(&fakeJobs{job: translate.Job{JobID: "j1", OutputBucket: "elsewhere", ManifestKey: "job-1/manifest.json"}}, store, "input", "output")

	rec, _, err := svc.Resolve(context.Background(), "j1")
	require.NoError(t, err, "manifest must be read from the bucket the describe response names")
	require.Equal(t, "chem", rec.Lib)
}

func TestResolve_BadInputPathSkipsRecordRead(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store, translate.Manifest{
		Details: []translate.FilePair{{SourceFile: "chem10/chem10.html", TargetFile: "out"}},
	}, nil)
	svc := New(&fakeJobs{job: translate.Job{ManifestKey: "job-1/manifest.json"}}, store, "input", "output")

	_, _, err := svc.Resolve(context.Background(), "j1")
	require.ErrorIs(t, err, ErrBadManifest)
	require.Equal(t, 1, store.Reads, "only the manifest may be read before identity validation fails")
}

func TestResolve_MissingRecord(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store, translate.Manifest{
		Details: []translate.FilePair{{SourceFile: "chem-10/chem-10.html", TargetFile: "out"}},
	}, nil)
	svc := New(&fakeJobs{job: translate.Job{ManifestKey: "job-1/manifest.json"}}, store, "input", "output")

	_, _, err := svc.Resolve(context.Background(), "j1")
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestResolve_EmptyManifest(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store, translate.Manifest{}, nil)
	svc := New(&fakeJobs{job: translate.Job{ManifestKey: "job-1/manifest.json"}}, store, "input", "output")

	_, _, err := svc.Resolve(context.Background(), "j1")
	require.ErrorIs(t, err, ErrBadManifest)
}

func TestRootIdentity(t *testing.T) {
	cases := []struct {
		in      string
		lib, id string
		wantErr bool
	}{
		{in: "chem-10/chem-10.html", lib: "chem", id: "10"},
		{in: "bio-lab-7/bio-lab-7.html", lib: "bio-lab", id: "7"},
		{in: "chem10/chem10.html", wantErr: true},
		{in: "chem-/x.html", wantErr: true},
		{in: "-10/x.html", wantErr: true},
	}
	for _, tc := range cases {
		lib, id, err := RootIdentity(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("RootIdentity(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("RootIdentity(%q): %v", tc.in, err)
			continue
		}
		if lib != tc.lib || id != tc.id {
			t.Errorf("RootIdentity(%q) = (%q, %q), want (%q, %q)", tc.in, lib, id, tc.lib, tc.id)
		}
	}
}
