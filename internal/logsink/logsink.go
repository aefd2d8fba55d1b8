package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	suffixLayout    = "2006-01-02"

	DefaultMaxBackups = 7
)

// Sink appends timestamped lines to a text file that rotates at the
// local midnight boundary. Rotated files keep the date of the day they
// cover as a suffix; at most maxBackups of them are retained.
type Sink struct {
	path       string
	maxBackups int
	now        func() time.Time

	file    *os.File
	openDay time.Time
}

type Option func(*Sink)

func WithMaxBackups(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.maxBackups = n
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

func Open(path string, opts ...Option) (*Sink, error) {
	s := &Sink{
		path:       path,
		maxBackups: DefaultMaxBackups,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir for %q: %w", path, err)
	}
	if err := s.openFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteLine appends line prefixed with the current timestamp, rotating
// first if the day has changed since the file was opened.
func (s *Sink) WriteLine(line string) error {
	now := s.now()
	if day := midnight(now); day.After(s.openDay) {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.file, "%s %s\n", now.Format(timestampLayout), line); err != nil {
		return fmt.Errorf("append to %q: %w", s.path, err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("close log %q: %w", s.path, err)
	}
	return nil
}

func (s *Sink) openFile() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %q: %w", s.path, err)
	}
	// A non-empty file left by a previous invocation belongs to the day
	// it was last written, not to today.
	day := midnight(s.now())
	if info, statErr := f.Stat(); statErr == nil && info.Size() > 0 {
		if written := midnight(info.ModTime()); written.Before(day) {
			day = written
		}
	}
	s.file = f
	s.openDay = day
	return nil
}

func (s *Sink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close log %q: %w", s.path, err)
	}
	s.file = nil

	rotated := s.path + "." + s.openDay.Format(suffixLayout)
	if err := os.Rename(s.path, rotated); err != nil {
		return fmt.Errorf("rotate log to %q: %w", rotated, err)
	}
	if err := s.prune(); err != nil {
		return err
	}
	return s.openFile()
}

func (s *Sink) prune() error {
	dir := filepath.Dir(s.path)
	prefix := filepath.Base(s.path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read log dir %q: %w", dir, err)
	}
	var rotated []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := time.Parse(suffixLayout, strings.TrimPrefix(name, prefix)); err != nil {
			continue
		}
		rotated = append(rotated, name)
	}
	if len(rotated) <= s.maxBackups {
		return nil
	}

	// The date suffix sorts chronologically.
	sort.Strings(rotated)
	for _, name := range rotated[:len(rotated)-s.maxBackups] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove rotated log %q: %w", name, err)
		}
	}
	return nil
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
