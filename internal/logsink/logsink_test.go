package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteLinePrefixesTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latency.log")
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	sink, err := Open(path, WithNow(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := sink.WriteLine("source=vm1 host=example.com"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "2025-03-14 10:30:00 source=vm1 host=example.com\n"
	if string(data) != want {
		t.Fatalf("unexpected log contents:\nwant %q\ngot  %q", want, string(data))
	}
}

func TestRotateAtDayBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latency.log")
	current := time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)

	sink, err := Open(path, WithNow(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := sink.WriteLine("before midnight"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}

	current = time.Date(2025, 3, 15, 0, 1, 0, 0, time.UTC)
	if err := sink.WriteLine("after midnight"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	rotated, err := os.ReadFile(path + ".2025-03-14")
	if err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	if !strings.Contains(string(rotated), "before midnight") {
		t.Fatalf("rotated file missing first line: %q", string(rotated))
	}

	active, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read active log: %v", err)
	}
	if strings.Contains(string(active), "before midnight") || !strings.Contains(string(active), "after midnight") {
		t.Fatalf("unexpected active log contents: %q", string(active))
	}
}

func TestRotationPrunesOldBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latency.log")

	for day := 1; day <= 9; day++ {
		name := path + "." + time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).Format(suffixLayout)
		if err := os.WriteFile(name, []byte("old\n"), 0o644); err != nil {
			t.Fatalf("seed rotated file: %v", err)
		}
	}

	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	sink, err := Open(path, WithNow(func() time.Time { return current }), WithMaxBackups(7))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := sink.WriteLine("day ten"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}

	current = time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	if err := sink.WriteLine("day eleven"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	rotated := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "latency.log.") {
			rotated++
		}
	}
	if rotated != 7 {
		t.Fatalf("expected 7 rotated files after prune, got %d", rotated)
	}
	if _, err := os.Stat(path + ".2025-03-01"); !os.IsNotExist(err) {
		t.Fatalf("expected oldest rotated file removed")
	}
	if _, err := os.Stat(path + ".2025-03-10"); err != nil {
		t.Fatalf("expected newest rotated file kept: %v", err)
	}
}

func TestOpenRotatesFileFromPreviousDay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latency.log")

	if err := os.WriteFile(path, []byte("2025-03-14 08:00:00 stale line\n"), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}
	yesterday := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, yesterday, yesterday); err != nil {
		t.Fatalf("set mtime: %v", err)
	}

	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	sink, err := Open(path, WithNow(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := sink.WriteLine("fresh line"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := os.Stat(path + ".2025-03-14"); err != nil {
		t.Fatalf("expected yesterday's file rotated out: %v", err)
	}
	active, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read active log: %v", err)
	}
	if strings.Contains(string(active), "stale line") {
		t.Fatalf("stale line should have been rotated away: %q", string(active))
	}
}
