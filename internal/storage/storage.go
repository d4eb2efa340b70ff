// Package storage abstracts the object store behind the pipeline: a
// key-value blob store with prefix-based hierarchical listing. Two
// implementations exist, S3 and the local filesystem.
package storage

import (
	"context"
	"strings"
	"time"
)

// Summary output suffixes excluded from file listings so generated documents
// are never re-processed as inputs.
var summarySuffixes = []string{"_summary.json", "_text_summary.json"}

// IsSummaryKey reports whether a key names a generated summary document.
func IsSummaryKey(key string) bool {
	lower := strings.ToLower(key)
	for _, suffix := range summarySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// FolderInfo describes one folder in a browse listing.
type FolderInfo struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// FileInfo describes one object in a browse listing.
type FileInfo struct {
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Store is the blob store consumed by the pipeline stages and the browse
// endpoints.
type Store interface {
	// ListFolders enumerates folder prefixes beneath prefix, recursively.
	// When objects exist directly at the prefix root, the root token (the
	// normalized prefix itself, "" for the bucket root) is included first.
	// The result is sorted and de-duplicated for stable processing order.
	ListFolders(ctx context.Context, bucket, prefix string) ([]string, error)

	// ListFiles returns the sorted object keys directly under folderPrefix
	// (non-recursive) whose lowercased key ends in one of extensions.
	// Generated summary documents are excluded.
	ListFiles(ctx context.Context, bucket, folderPrefix string, extensions []string) ([]string, error)

	// Download copies an object to a local path.
	Download(ctx context.Context, bucket, key, localPath string) error

	// Upload writes an object from bytes.
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// Get reads an object into memory, returning its bytes and content type.
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)

	// Browse returns the folders and files one level under prefix.
	Browse(ctx context.Context, bucket, prefix string) ([]FolderInfo, []FileInfo, error)

	// SyncDir uploads every file under localDir to bucket beneath prefix,
	// preserving relative paths.
	SyncDir(ctx context.Context, localDir, bucket, prefix string) error
}

func normalizeFolderPrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

func hasExtension(key string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	lower := strings.ToLower(key)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".txt"):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
