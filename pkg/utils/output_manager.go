package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager lays out export files under one directory per run
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateRunOutputDir creates the directory holding a run's exports
func (om *OutputManager) CreateRunOutputDir(runID string) (string, error) {
	if strings.ContainsAny(runID, `/\`) || runID == "" || runID == "." || runID == ".." {
		return "", fmt.Errorf("invalid run ID: %q", runID)
	}
	runDir := filepath.Join(om.BaseOutputDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run output directory: %w", err)
	}

	return runDir, nil
}

// GetOutputFilePath generates a full path for an output file of a run
func (om *OutputManager) GetOutputFilePath(runID, fileName string) (string, error) {
	runDir, err := om.CreateRunOutputDir(runID)
	if err != nil {
		return "", err
	}

	// Clean the filename to remove any path separators
	cleanFileName := filepath.Base(fileName)

	return filepath.Join(runDir, cleanFileName), nil
}

// GetDownloadURL generates the API download URL for a run's feature table
func (om *OutputManager) GetDownloadURL(runID string) string {
	return fmt.Sprintf("/api/v1/extractions/%s/download", runID)
}

// RemoveRunOutputDir deletes every export written for a run
func (om *OutputManager) RemoveRunOutputDir(runID string) error {
	if strings.ContainsAny(runID, `/\`) || runID == "" || runID == "." || runID == ".." {
		return fmt.Errorf("invalid run ID: %q", runID)
	}
	return os.RemoveAll(filepath.Join(om.BaseOutputDir, runID))
}
