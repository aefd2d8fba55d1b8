package diag

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/latwatchhq/agent/internal/config"
	"github.com/latwatchhq/agent/internal/identity"
)

const (
	defaultOutputPrefix = "diag_"
	infoFileName        = "diagnostics/info.json"
	configDirName       = "config"
	logsDirName         = "logs"
)

// Dependencies provides optional overrides for testing.
type Dependencies struct {
	Now func() time.Time
}

// Run executes the diagnostics workflow, producing a tar.gz bundle
// with the agent config, the identity file, and the report logs
// (current file plus rotated history).
func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Path to agent configuration file")
	outputPath := fs.String("output", "", "Path for diagnostics tarball (default diag_<ts>.tar.gz next to the report log)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	now := deps.Now().UTC()
	info := bundleInfo{
		GeneratedAt: now.Format(time.RFC3339),
		BundleID:    uuid.NewString(),
		Warnings:    make([]string, 0, 4),
		GoVersion:   runtime.Version(),
	}

	var cfg config.Config
	cfgLoaded := false
	if parsed, err := config.Load(ctx, *configPath); err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("config unavailable (%s): %v", *configPath, err))
	} else {
		cfg = parsed
		cfgLoaded = true
		info.ConfigPath = *configPath
	}

	logDir := ""
	if cfgLoaded {
		logDir = filepath.Dir(cfg.Log.File)
		info.LogDir = logDir
		info.Source = identity.Resolve(cfg.Agent.IdentityFile)
	}

	outPath := *outputPath
	if outPath == "" {
		if logDir == "" {
			return fmt.Errorf("cannot derive output path without config (provide --output)")
		}
		outPath = filepath.Join(logDir, fmt.Sprintf("%s%s.tar.gz", defaultOutputPrefix, now.Format("20060102T150405Z")))
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure output directory %q: %w", filepath.Dir(outPath), err)
	}
	info.OutputPath = outPath

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create diagnostics file %q: %w", outPath, err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	// Include config file if available
	if fi, err := os.Stat(*configPath); err == nil {
		if !fi.Mode().IsRegular() {
			info.Warnings = append(info.Warnings, fmt.Sprintf("config path %q is not a regular file", *configPath))
		} else if err := addFile(tw, *configPath, filepath.ToSlash(filepath.Join(configDirName, filepath.Base(*configPath)))); err != nil {
			info.Warnings = append(info.Warnings, fmt.Sprintf("failed to include config %q: %v", *configPath, err))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		info.Warnings = append(info.Warnings, fmt.Sprintf("unable to stat config %q: %v", *configPath, err))
	}

	// Include the identity file if available
	if cfgLoaded && cfg.Agent.IdentityFile != "" {
		if _, err := os.Stat(cfg.Agent.IdentityFile); err == nil {
			name := filepath.ToSlash(filepath.Join(configDirName, filepath.Base(cfg.Agent.IdentityFile)))
			if err := addFile(tw, cfg.Agent.IdentityFile, name); err != nil {
				info.Warnings = append(info.Warnings, fmt.Sprintf("failed to include identity file %q: %v", cfg.Agent.IdentityFile, err))
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			info.Warnings = append(info.Warnings, fmt.Sprintf("unable to stat identity file %q: %v", cfg.Agent.IdentityFile, err))
		}
	}

	// Include the report log and its rotated history
	if cfgLoaded {
		count, err := addReportLogs(tw, cfg.Log.File, outPath)
		if err != nil {
			info.Warnings = append(info.Warnings, fmt.Sprintf("failed to include report logs from %q: %v", logDir, err))
		}
		info.LogFiles = count
	}

	return writeInfo(tw, info)
}

// addReportLogs adds the report log plus rotated copies, skipping the
// bundle being written in case it lives in the same directory.
func addReportLogs(tw *tar.Writer, logPath, outPath string) (int, error) {
	dir := filepath.Dir(logPath)
	base := filepath.Base(logPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name != base && !strings.HasPrefix(name, base+".") {
			continue
		}
		src := filepath.Join(dir, name)
		if src == outPath {
			continue
		}
		if err := addFile(tw, src, filepath.ToSlash(filepath.Join(logsDirName, name))); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func writeInfo(tw *tar.Writer, info bundleInfo) error {
	payload, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagnostics info: %w", err)
	}
	return addBytes(tw, payload, infoFileName)
}

func addBytes(tw *tar.Writer, data []byte, name string) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0o600,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header for %q: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write tar content for %q: %w", name, err)
	}
	return nil
}

func addFile(tw *tar.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer file.Close()

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("header for %q: %w", src, err)
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %q: %w", src, err)
	}
	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("copy %q: %w", src, err)
	}
	return nil
}

type bundleInfo struct {
	GeneratedAt string   `json:"generated_at"`
	BundleID    string   `json:"bundle_id"`
	OutputPath  string   `json:"output_path"`
	ConfigPath  string   `json:"config_path,omitempty"`
	Source      string   `json:"source,omitempty"`
	LogDir      string   `json:"log_dir,omitempty"`
	LogFiles    int      `json:"log_files"`
	Warnings    []string `json:"warnings,omitempty"`
	GoVersion   string   `json:"go_version"`
}
