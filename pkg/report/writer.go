package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names inside the output directory.
const (
	JSONFile       = "report.json"
	JUnitFile      = "junit-report.xml"
	ScreenshotsDir = "screenshots"
)

// WriteJSON writes report.json into outputDir and returns its path.
func WriteJSON(outputDir string, r *Report) (string, error) {
	path := filepath.Join(outputDir, JSONFile)
	if err := atomicWriteJSON(path, r); err != nil {
		return "", fmt.Errorf("write %s: %w", JSONFile, err)
	}
	return path, nil
}

// ReadJSON reads report.json from outputDir.
func ReadJSON(outputDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, JSONFile))
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", JSONFile, err)
	}
	return &r, nil
}

// WriteAll writes report.json and junit-report.xml.
func WriteAll(outputDir string, r *Report) error {
	if _, err := WriteJSON(outputDir, r); err != nil {
		return err
	}
	return WriteJUnit(outputDir, r)
}
