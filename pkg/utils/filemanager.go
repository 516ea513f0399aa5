// =============================================================================
// Tenant Invoicer - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for an invoicing run:
//   - Run directory naming and creation
//   - Zip packaging of the generated invoices
//   - JSON manifest writing
//   - Summary log generation
//   - Retention of old run directories
//
// RUN DIRECTORY STRATEGY:
//   - Every run writes into a fresh directory under the export directory
//   - The directory name comes from a format with placeholders, so two runs
//     never overwrite each other
//   - Old run directories are removed only on request (CleanOldRuns)
//
// =============================================================================

package utils

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

// TimestampLayout formats the {timestamp} placeholder.
const TimestampLayout = "20060102_150405"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager creates run directories under the export directory.
type FileManager struct {
	// ExportDir is the parent of every run directory.
	ExportDir string

	// RunDirFormat names a run directory. Placeholders:
	//   {statement} - statement month (YYYY-MM)
	//   {property}  - property code
	//   {timestamp} - run start (YYYYMMDD_HHMMSS)
	//   {uuid}      - a random UUID
	RunDirFormat string
}

// NewFileManager creates a FileManager.
func NewFileManager(exportDir, runDirFormat string) *FileManager {
	return &FileManager{
		ExportDir:    exportDir,
		RunDirFormat: runDirFormat,
	}
}

// CreateRunDir creates a new run directory and returns its path.
//
// PARAMETERS:
//   - now: The run start time, used for {timestamp}.
//   - params: Values for the other placeholders (e.g. "statement", "property").
//
// RETURNS:
//   - The path of the created directory.
//   - An error if the directory already exists or cannot be created.
func (fm *FileManager) CreateRunDir(now time.Time, params map[string]string) (string, error) {
	if err := os.MkdirAll(fm.ExportDir, 0o755); err != nil {
		return "", ierr.WithError(err).
			WithHintf("Could not create export directory %s", fm.ExportDir).
			Mark(ierr.ErrSystem)
	}

	dir := filepath.Join(fm.ExportDir, GenerateRunDirName(fm.RunDirFormat, now, params))

	// Mkdir, not MkdirAll: an existing directory means a name collision.
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", ierr.WithError(err).
			WithHintf("Could not create run directory %s", dir).
			Mark(ierr.ErrSystem)
	}
	return dir, nil
}

// GenerateRunDirName expands the placeholders in format.
//
// EXAMPLE:
//
//	format: "{statement}_{timestamp}_{uuid}"
//	params: {"statement": "2024-06"}
//	output: "2024-06_20240520_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890"
func GenerateRunDirName(format string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format(TimestampLayout),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return sanitizeName(result)
}

// sanitizeName keeps a generated name inside its parent directory.
func sanitizeName(name string) string {
	name = strings.NewReplacer("/", "-", `\`, "-").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "run"
	}
	return name
}

// =============================================================================
// PACKAGING
// =============================================================================

// WriteZip writes an archive at zipPath containing files, stored flat under
// their base names in the given order.
//
// RETURNS:
//   - An error if any file cannot be read or the archive cannot be written.
//     A partial archive is removed.
func WriteZip(zipPath string, files []string) (err error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Could not create archive %s", zipPath).
			Mark(ierr.ErrSystem)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = ierr.WithError(cerr).
				WithHintf("Could not write archive %s", zipPath).
				Mark(ierr.ErrSystem)
		}
		if err != nil {
			_ = os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addToZip(zw, file); err != nil {
			return ierr.WithError(err).
				WithHintf("Could not add %s to archive %s", filepath.Base(file), zipPath).
				Mark(ierr.ErrSystem)
		}
	}
	if err := zw.Close(); err != nil {
		return ierr.WithError(err).
			WithHintf("Could not finish archive %s", zipPath).
			Mark(ierr.ErrSystem)
	}
	return nil
}

func addToZip(zw *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Could not encode %s", filepath.Base(path)).
			Mark(ierr.ErrSystem)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return ierr.WithError(err).
			WithHintf("Could not write %s", path).
			Mark(ierr.ErrSystem)
	}
	return nil
}

// =============================================================================
// SUMMARY LOG
// =============================================================================

// IssueLogEntry is one problem reported in the summary log.
type IssueLogEntry struct {
	Severity  string
	Source    string
	RowNumber int
	RowLabel  string
	Field     string
	Value     string
	Message   string
}

// RunSummary contains summary information about an invoicing run.
type RunSummary struct {
	StartTime     time.Time
	EndTime       time.Time
	PropertyCode  string
	StatementDate string
	LedgerFile    string
	WaterFile     string
	RunDir        string
	Invoices      int
	Suppressed    int
	Failed        []string
	Files         []string
	Issues        []IssueLogEntry
}

// WriteSummaryLog writes the run summary to summary.log in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, "summary.log")

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", ierr.WithError(err).
			WithHintf("Could not create summary log %s", summaryPath).
			Mark(ierr.ErrSystem)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	waterFile := summary.WaterFile
	if waterFile == "" {
		waterFile = "(skipped)"
	}

	// Header.
	fmt.Fprintf(writer, "Tenant Invoicer - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Property:       %s\n"+
		"  Statement:      %s\n"+
		"  Ledger:         %s\n"+
		"  Water report:   %s\n"+
		"  Run directory:  %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Invoices:       %d\n"+
		"  Nothing due:    %d\n"+
		"  Failed:         %d\n"+
		"  Issues:         %d\n\n",
		summary.PropertyCode,
		summary.StatementDate,
		summary.LedgerFile,
		waterFile,
		summary.RunDir,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.Invoices,
		summary.Suppressed,
		len(summary.Failed),
		len(summary.Issues))

	if len(summary.Files) > 0 {
		writer.WriteString("Generated Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.Files {
			fmt.Fprintf(writer, "  %s\n", filepath.Base(f))
		}
		writer.WriteString("\n")
	}

	if len(summary.Failed) > 0 {
		writer.WriteString("Failed:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.Failed {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	if len(summary.Issues) > 0 {
		writer.WriteString("Issues:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for i, issue := range summary.Issues {
			fmt.Fprintf(writer, "Issue #%d\n"+
				"  Severity:       %s\n"+
				"  Source:         %s\n"+
				"  Message:        %s\n",
				i+1, issue.Severity, issue.Source, issue.Message)
			if issue.RowNumber > 0 {
				fmt.Fprintf(writer, "  Row Number:     %d\n", issue.RowNumber)
			}
			if issue.RowLabel != "" {
				fmt.Fprintf(writer, "  Row Label:      %s\n", issue.RowLabel)
			}
			if issue.Field != "" {
				fmt.Fprintf(writer, "  Field:          %s\n", issue.Field)
			}
			if issue.Value != "" {
				fmt.Fprintf(writer, "  Value:          %s\n", issue.Value)
			}
			writer.WriteString("\n")
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", ierr.WithError(err).
			WithHintf("Could not write summary log %s", summaryPath).
			Mark(ierr.ErrSystem)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldRuns removes run directories directly under exportDir whose
// modification time is before now minus maxAge. Plain files are left alone.
//
// RETURNS:
//   - The removed directories, sorted.
//   - An error if the export directory cannot be read or a removal fails.
func CleanOldRuns(exportDir string, maxAge time.Duration, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHintf("Could not read export directory %s", exportDir).
			Mark(ierr.ErrSystem)
	}

	cutoff := now.Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(exportDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, ierr.WithError(err).
				WithHintf("Could not remove %s", path).
				Mark(ierr.ErrSystem)
		}
		removed = append(removed, path)
	}

	sort.Strings(removed)
	return removed, nil
}
