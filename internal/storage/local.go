package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore implements Store over a directory tree: bucket/key maps to
// root/bucket/key. Used in local run mode and in tests.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", dir, err)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) bucketDir(bucket string) string {
	return filepath.Join(s.root, bucket)
}

func (s *LocalStore) keyPath(bucket, key string) string {
	return filepath.Join(s.bucketDir(bucket), filepath.FromSlash(key))
}

// ListFolders enumerates folder prefixes beneath prefix, recursively.
func (s *LocalStore) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	base := s.bucketDir(bucket)
	startDir := filepath.Join(base, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))

	if _, err := os.Stat(startDir); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	discovered := []string{}
	rootHasFiles := false

	err := filepath.WalkDir(startDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != startDir {
				discovered = append(discovered, filepath.ToSlash(rel)+"/")
			}
			return nil
		}
		if filepath.Dir(path) == startDir {
			rootHasFiles = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rootHasFiles {
		discovered = append(discovered, normalizeFolderPrefix(prefix))
	}

	return sortUnique(discovered), nil
}

// ListFiles returns sorted keys directly under folderPrefix matching the
// extension filter, excluding generated summaries.
func (s *LocalStore) ListFiles(ctx context.Context, bucket, folderPrefix string, extensions []string) ([]string, error) {
	normalized := normalizeFolderPrefix(folderPrefix)
	dir := filepath.Join(s.bucketDir(bucket), filepath.FromSlash(strings.TrimSuffix(normalized, "/")))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := normalized + entry.Name()
		if IsSummaryKey(key) || !hasExtension(key, extensions) {
			continue
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

// Download copies an object to a local path.
func (s *LocalStore) Download(ctx context.Context, bucket, key, localPath string) error {
	data, err := os.ReadFile(s.keyPath(bucket, key))
	if err != nil {
		return fmt.Errorf("download failed for %s/%s: %w", bucket, key, err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

// Upload writes an object from bytes.
func (s *LocalStore) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	path := s.keyPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("upload failed for %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get reads an object into memory.
func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	data, err := os.ReadFile(s.keyPath(bucket, key))
	if err != nil {
		return nil, "", fmt.Errorf("get failed for %s/%s: %w", bucket, key, err)
	}
	return data, contentTypeFor(key), nil
}

// Browse returns the folders and files one level under prefix.
func (s *LocalStore) Browse(ctx context.Context, bucket, prefix string) ([]FolderInfo, []FileInfo, error) {
	normalized := normalizeFolderPrefix(prefix)
	dir := filepath.Join(s.bucketDir(bucket), filepath.FromSlash(strings.TrimSuffix(normalized, "/")))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FolderInfo{}, []FileInfo{}, nil
		}
		return nil, nil, err
	}

	folders := []FolderInfo{}
	files := []FileInfo{}

	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, FolderInfo{
				Name:   entry.Name(),
				Prefix: normalized + entry.Name() + "/",
			})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:         entry.Name(),
			Key:          normalized + entry.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}

	return folders, files, nil
}

// SyncDir copies every file under localDir into the bucket beneath prefix.
func (s *LocalStore) SyncDir(ctx context.Context, localDir, bucket, prefix string) error {
	normalized := normalizeFolderPrefix(prefix)

	return filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed reading %s: %w", path, err)
		}

		return s.Upload(ctx, bucket, normalized+filepath.ToSlash(rel), data, "")
	})
}
