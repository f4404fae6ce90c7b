// Package backup ships store snapshots to an S3-compatible bucket and
// restores the newest one on demand. One backup runs at a time; a
// trigger while one is in flight is a no-op.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
)

var ErrNoBackups = errors.New("no backups found")

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Manager struct {
	client *minio.Client
	bucket string
	repo   store.Repository

	mu      sync.Mutex
	running bool
	lastErr error
}

func NewManager(ctx context.Context, repo store.Repository, opts Options) (*Manager, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Printf("[backup] created bucket %q", opts.Bucket)
	}

	return &Manager{client: client, bucket: opts.Bucket, repo: repo}, nil
}

// Trigger starts a backup in the background. It returns false when one
// is already running.
func (m *Manager) Trigger() bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return false
	}
	m.running = true
	m.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		err := m.run(ctx)

		m.mu.Lock()
		m.running = false
		m.lastErr = err
		m.mu.Unlock()

		if err != nil {
			log.Printf("[backup] failed: %v", err)
		} else {
			log.Println("[backup] snapshot uploaded")
		}
	}()
	return true
}

func (m *Manager) run(ctx context.Context) error {
	data, err := m.repo.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshot-%s.json", time.Now().UTC().Format("20060102-150405"))
	_, err = m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}

	return m.repo.SetSetting(ctx, domain.SettingLastBackupAt, time.Now().UTC().Format(time.RFC3339))
}

// Restore pulls the newest snapshot object and replaces the store's
// contents with it.
func (m *Manager) Restore(ctx context.Context) error {
	var names []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: "snapshot-"}) {
		if object.Err != nil {
			return object.Err
		}
		names = append(names, object.Key)
	}
	if len(names) == 0 {
		return ErrNoBackups
	}
	// Snapshot names embed a sortable timestamp.
	sort.Strings(names)
	newest := names[len(names)-1]

	object, err := m.client.GetObject(ctx, m.bucket, newest, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return err
	}

	if err := m.repo.ImportSnapshot(ctx, data); err != nil {
		return fmt.Errorf("import %s: %w", newest, err)
	}
	log.Printf("[backup] restored from %s", newest)
	return nil
}

func (m *Manager) Status(ctx context.Context) domain.BackupStatus {
	m.mu.Lock()
	running, lastErr := m.running, m.lastErr
	m.mu.Unlock()

	status := domain.BackupStatus{Configured: true, Running: running}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	if at, err := m.repo.GetSetting(ctx, domain.SettingLastBackupAt); err == nil {
		status.LastBackupAt = at
	}
	return status
}
