package governance

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxInstructionBytes caps how much of an AGENTS.md file is carried into
// planning prompts. Larger files are truncated, not rejected.
const maxInstructionBytes = 16 * 1024

// AgentInstructions holds the contents of an AGENTS.md file.
type AgentInstructions struct {
	Path      string
	Raw       string
	Truncated bool
	LoadedAt  time.Time
}

// Instructions returns the trimmed instruction text for prompt inclusion.
func (a *AgentInstructions) Instructions() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.Raw)
}

// LoadAGENTS searches for AGENTS.md starting at startDir and walking upwards.
// It returns nil without error when no file is found.
func LoadAGENTS(startDir string) (*AgentInstructions, error) {
	if strings.TrimSpace(startDir) == "" {
		return nil, errors.New("startDir is required")
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(dir, "AGENTS.md")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			raw, err := os.ReadFile(candidate)
			if err != nil {
				return nil, err
			}
			truncated := false
			if len(raw) > maxInstructionBytes {
				raw = raw[:maxInstructionBytes]
				truncated = true
			}
			return &AgentInstructions{
				Path:      candidate,
				Raw:       string(raw),
				Truncated: truncated,
				LoadedAt:  time.Now().UTC(),
			}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, nil
}
