package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	supabase "github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"

	"textbridge/internal/logger"
)

// Store is the object-storage boundary used by the export, correlate and
// rebuild stages. Keys are the sole indexing mechanism; there is no
// separate database.
type Store interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

type Supabase struct {
	client *supabase.Client
	log    *logger.Logger
}

func NewSupabase(url, serviceKey string) (*Supabase, error) {
	if url == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase storage requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
	}
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &Supabase{client: client, log: logger.New("Storage")}, nil
}

func (s *Supabase) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	ct := contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	if _, err := s.client.Storage.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{ContentType: &ct}); err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	s.log.LogDebugf("uploaded %s/%s (%d bytes)", bucket, key, len(data))
	return nil
}

func (s *Supabase) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	b, err := s.client.Storage.DownloadFile(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return b, nil
}

// Memory is an in-process Store used by tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Reads counts Download calls, so tests can assert that a stage
	// failed before touching storage.
	Reads int
}

func NewMemory() *Memory { return &Memory{objects: map[string][]byte{}} }

func (m *Memory) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[bucket+"/"+key] = cp
	return nil
}

func (m *Memory) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return b, nil
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
