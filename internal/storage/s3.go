package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements Store over Amazon S3.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3Store using the default AWS credential chain.
func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3StoreWithClient creates an S3Store around an existing client.
func NewS3StoreWithClient(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

// ListFolders enumerates folder prefixes beneath prefix, recursively.
func (s *S3Store) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	discovered := []string{}
	stack := []string{prefix}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(bucket),
			Prefix:    aws.String(current),
			Delimiter: aws.String("/"),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed listing folders in s3://%s/%s: %w", bucket, current, err)
			}
			for _, cp := range page.CommonPrefixes {
				if cp.Prefix == nil || *cp.Prefix == "" {
					continue
				}
				discovered = append(discovered, *cp.Prefix)
				stack = append(stack, *cp.Prefix)
			}
		}
	}

	// Include the root token when objects exist directly at the prefix.
	rootHasFiles, err := s.prefixHasObjects(ctx, bucket, prefix)
	if err == nil && rootHasFiles {
		discovered = append(discovered, normalizeFolderPrefix(prefix))
	}

	return sortUnique(discovered), nil
}

func (s *S3Store) prefixHasObjects(ctx context.Context, bucket, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// ListFiles returns sorted keys directly under folderPrefix matching the
// extension filter, excluding generated summaries.
func (s *S3Store) ListFiles(ctx context.Context, bucket, folderPrefix string, extensions []string) ([]string, error) {
	normalized := normalizeFolderPrefix(folderPrefix)

	keys := []string{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(normalized),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed listing files in s3://%s/%s: %w", bucket, normalized, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || *obj.Key == "" || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			if IsSummaryKey(*obj.Key) || !hasExtension(*obj.Key, extensions) {
				continue
			}
			keys = append(keys, *obj.Key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Download copies an object to a local path.
func (s *S3Store) Download(ctx context.Context, bucket, key, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download failed for s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return err
	}

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("failed writing %s: %w", localPath, err)
	}
	return nil
}

// Upload writes an object from bytes.
func (s *S3Store) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if contentType == "" {
		contentType = contentTypeFor(key)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload failed for s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get reads an object into memory.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get failed for s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}
	return data, contentType, nil
}

// Browse returns the folders and files one level under prefix.
func (s *S3Store) Browse(ctx context.Context, bucket, prefix string) ([]FolderInfo, []FileInfo, error) {
	normalized := normalizeFolderPrefix(prefix)

	folders := []FolderInfo{}
	files := []FileInfo{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(normalized),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed listing s3://%s/%s: %w", bucket, normalized, err)
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			trimmed := strings.TrimSuffix(*cp.Prefix, "/")
			folders = append(folders, FolderInfo{
				Name:   trimmed[strings.LastIndex(trimmed, "/")+1:],
				Prefix: *cp.Prefix,
			})
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") || *obj.Key == normalized {
				continue
			}
			info := FileInfo{
				Name: (*obj.Key)[strings.LastIndex(*obj.Key, "/")+1:],
				Key:  *obj.Key,
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			files = append(files, info)
		}
	}

	return folders, files, nil
}

// SyncDir uploads every file under localDir beneath prefix.
func (s *S3Store) SyncDir(ctx context.Context, localDir, bucket, prefix string) error {
	normalized := normalizeFolderPrefix(prefix)

	return filepath.WalkDir(localDir, func(path string, d os.DirEntry, err error) error {
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

		key := normalized + filepath.ToSlash(rel)
		return s.Upload(ctx, bucket, key, data, "")
	})
}

func sortUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
