package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPublicObjectURL(t *testing.T) {
	tests := []struct {
		base, bucket, name, want string
	}{
		{
			base:   "https://abc.supabase.co/storage/v1/object/public",
			bucket: "audio",
			name:   "processed/0a1b2c3d.mp3",
			want:   "https://abc.supabase.co/storage/v1/object/public/audio/processed/0a1b2c3d.mp3",
		},
		{
			base:   "http://127.0.0.1:9000/",
			bucket: "slowrvb",
			name:   "/processed/a1b2c3-rawcopy.mp3",
			want:   "http://127.0.0.1:9000/slowrvb/processed/a1b2c3-rawcopy.mp3",
		},
		{
			base:   "http://cdn.local",
			bucket: "b",
			name:   "processed/a b.mp3",
			want:   "http://cdn.local/b/processed/a%20b.mp3",
		},
	}
	for _, tt := range tests {
		if got := PublicObjectURL(tt.base, tt.bucket, tt.name); got != tt.want {
			t.Errorf("PublicObjectURL(%q, %q, %q) = %q, want %q", tt.base, tt.bucket, tt.name, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
		3 << 30:         "3.0 GB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestGetFileExtension(t *testing.T) {
	tests := map[string]string{
		"processed/0a1b2c3d.mp3": "mp3",
		"sources/a1b2c3.wav":     "wav",
		"processed.d/noext":      "unknown",
		"README":                 "unknown",
	}
	for in, want := range tests {
		if got := getFileExtension(in); got != want {
			t.Errorf("getFileExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBucketStatsAndPrint(t *testing.T) {
	stats := &BucketStats{ByExtension: make(map[string]int64)}
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	stats.add("processed/a.mp3", 1024, early)
	stats.add("processed/b.mp3", 2048, late)
	stats.add("processed/c.wav", 10, early)

	if stats.TotalObjects != 3 || stats.TotalSize != 3082 {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.LastModified.Equal(late) {
		t.Fatalf("LastModified = %v, want %v", stats.LastModified, late)
	}
	if stats.ByExtension["mp3"] != 2 || stats.ByExtension["wav"] != 1 {
		t.Fatalf("ByExtension = %v", stats.ByExtension)
	}

	var buf bytes.Buffer
	PrintStats(&buf, stats)
	out := buf.String()
	for _, want := range []string{"Objects: 3", "Total size: 3.0 KB", "mp3: 2", "wav: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTree(t *testing.T) {
	objects := []ObjectInfo{
		{Key: "processed/b.mp3", Size: 2048},
		{Key: "processed/a.mp3", Size: 10},
		{Key: "processed/old/c.mp3", Size: 1024},
		{Key: "top.txt", Size: 1},
	}
	var buf bytes.Buffer
	PrintTree(&buf, objects)
	want := "processed/\n" +
		"  a.mp3 (10 B)\n" +
		"  b.mp3 (2.0 KB)\n" +
		"  old/\n" +
		"    c.mp3 (1.0 KB)\n" +
		"top.txt (1 B)\n"
	if buf.String() != want {
		t.Fatalf("tree =\n%s\nwant\n%s", buf.String(), want)
	}
}
