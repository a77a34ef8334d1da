package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats summarizes the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByExtension  map[string]int64
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// List lists the objects under prefix and gathers statistics on the way.
func (m *MinioStore) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("bucket %s does not exist", m.bucketName)
	}

	stats := &BucketStats{ByExtension: make(map[string]int64)}
	var objects []ObjectInfo

	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.add(object.Key, object.Size, object.LastModified)
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// Stats summarizes every object under prefix.
func (m *MinioStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	_, stats, err := m.List(ctx, prefix, true)
	return stats, err
}

func (s *BucketStats) add(key string, size int64, modified time.Time) {
	s.TotalObjects++
	s.TotalSize += size
	if modified.After(s.LastModified) {
		s.LastModified = modified
	}
	s.ByExtension[getFileExtension(key)]++
}

// DeletePrefix removes every object under prefix and returns how many were removed.
func (m *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("refusing to delete without a prefix")
	}
	objects, _, err := m.List(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	go func() {
		defer close(objectsCh)
		for _, obj := range objects {
			objectsCh <- minio.ObjectInfo{Key: obj.Key}
		}
	}()

	for rmErr := range m.client.RemoveObjects(ctx, m.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return 0, fmt.Errorf("failed to delete object %s: %w", rmErr.ObjectName, rmErr.Err)
		}
	}
	return len(objects), nil
}

// PrintObjects writes a listing followed by a summary.
func PrintObjects(w io.Writer, bucket, prefix string, objects []ObjectInfo, stats *BucketStats) {
	fmt.Fprintf(w, "Bucket: %s\n", bucket)
	fmt.Fprintf(w, "Prefix: %q\n", prefix)
	for _, obj := range objects {
		fmt.Fprintf(w, "  %s  %10s  %s\n", obj.LastModified.Format(time.RFC3339), formatSize(obj.Size), obj.Key)
	}
	PrintStats(w, stats)
}

// PrintStats writes the bucket summary.
func PrintStats(w io.Writer, stats *BucketStats) {
	fmt.Fprintf(w, "Objects: %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "Total size: %s\n", formatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "Last modified: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  %s: %d\n", ext, stats.ByExtension[ext])
	}
}

// formatSize renders a byte count with a binary unit.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// getFileExtension returns the extension without the dot, or "unknown".
func getFileExtension(filename string) string {
	for i := len(filename) - 1; i >= 0 && filename[i] != '/'; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return "unknown"
}

// PrintTree writes the object keys as an indented directory tree.
func PrintTree(w io.Writer, objects []ObjectInfo) {
	keys := make([]string, 0, len(objects))
	sizes := make(map[string]int64, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
		sizes[obj.Key] = obj.Size
	}
	sort.Strings(keys)

	var prev []string
	for _, key := range keys {
		parts := strings.Split(key, "/")
		dirs := parts[:len(parts)-1]
		common := 0
		for common < len(dirs) && common < len(prev) && dirs[common] == prev[common] {
			common++
		}
		for i := common; i < len(dirs); i++ {
			fmt.Fprintf(w, "%s%s/\n", strings.Repeat("  ", i), dirs[i])
		}
		fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", len(dirs)), parts[len(parts)-1], formatSize(sizes[key]))
		prev = dirs
	}
}
