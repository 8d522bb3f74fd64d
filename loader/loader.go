package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
)

// NotFoundError reports a scenario path that does not exist on disk. Callers
// can distinguish it from parse failures with errors.As.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scenario path not found: %s", e.Path)
}

// LoadFile reads one JSON file and returns the scenarios it defines. Both
// accepted shapes are handled: a single scenario object, or a collection
// under a "scenarios" key.
func LoadFile(path string) ([]*model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenarios, err := model.ParseScenarios(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	for _, s := range scenarios {
		logger.Logger.Debug("Loaded scenario",
			"name", s.Name,
			"turns", len(s.Conversation),
			"file", path,
		)
	}

	return scenarios, nil
}

// LoadScenario reads a file that must define exactly one scenario. A
// combined file with a single entry is accepted.
func LoadScenario(path string) (*model.Scenario, error) {
	scenarios, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(scenarios) != 1 {
		return nil, fmt.Errorf("expected exactly one scenario in %s, found %d", path, len(scenarios))
	}
	return scenarios[0], nil
}

// LoadDirectory scans a directory for .json files in lexical order and loads
// the scenarios from each. A malformed file is logged and skipped so one bad
// file cannot sink the whole batch; a directory where nothing parses yields
// an empty slice, not an error. Subdirectories are not descended into.
func LoadDirectory(dir string) ([]*model.Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: dir}
		}
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	var scenarios []*model.Scenario
	for _, name := range files {
		path := filepath.Join(dir, name)
		loaded, err := LoadFile(path)
		if err != nil {
			logger.Logger.Warn("Skipping malformed scenario file",
				"file", path,
				"error", err,
			)
			continue
		}
		scenarios = append(scenarios, loaded...)
	}

	return scenarios, nil
}

// Load resolves a path to scenarios: a directory loads every .json file in
// it, anything else is treated as a single scenario file.
func Load(path string) ([]*model.Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to stat scenario path: %w", err)
	}

	if info.IsDir() {
		return LoadDirectory(path)
	}
	return LoadFile(path)
}
