package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"reelforge/internal/fileutil"
)

// ScriptArtifactName is the per-task JSON file holding generated text
// stages. A resumed task reads it back instead of spending provider calls.
const ScriptArtifactName = "script.json"

type scriptArtifact struct {
	Script string   `json:"script"`
	Terms  []string `json:"search_terms"`
	Params Params   `json:"params"`
}

// loadScriptArtifact reads a previous run's script.json from the task
// directory. Missing or malformed files simply report absence; the stages
// regenerate.
func loadScriptArtifact(dir string) (scriptArtifact, bool) {
	var artifact scriptArtifact
	data, err := os.ReadFile(filepath.Join(dir, ScriptArtifactName))
	if err != nil {
		return artifact, false
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return scriptArtifact{}, false
	}
	return artifact, true
}

func saveScriptArtifact(dir string, artifact scriptArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, ScriptArtifactName), append(data, '\n'), 0o644)
}
