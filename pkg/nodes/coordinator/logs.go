package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// initExperimentDir creates root/<timestamp>-<run-id>/ and returns its
// path, mirroring Nodes/utils.py's init_logs. The Python reference
// keys directories by second-resolution timestamp alone, which
// collides if two runs are launched within the same second; appending
// a short run id keeps concurrent experiment directories distinct.
// InitializeClients creates the directory on every run; workers in
// shell mode log to stdout and leave it empty.
func initExperimentDir(root string) (string, error) {
	if root == "" {
		root = "logs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("2006_01_02_15_04_05")
	runID := uuid.New().String()[:8]
	path := filepath.Join(root, fmt.Sprintf("%s-%s", stamp, runID))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("creating experiment directory %s: %w", path, err)
	}
	return path, nil
}
