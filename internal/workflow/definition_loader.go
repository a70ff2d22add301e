package workflow

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefinitionsSubdir is the conventional directory, relative to an
// orchestrator's root, holding one YAML file per workflow definition.
// Distinct from workflows/runs/, which holds run state rather than
// definitions.
const DefinitionsSubdir = "workflows/definitions"

// LoadDefinitionFile reads and indexes a single workflow definition YAML
// file, the same strict-decode idiom internal/config uses for
// config.yaml/orchestrator.yaml.
func LoadDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: path, Reason: "read failed", Cause: err}
	}

	def := &Definition{}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: path, Reason: "parse failed", Cause: err}
	}
	if def.ID == "" {
		return nil, &direrrors.ConfigInvalidError{Key: path, Reason: "id is required"}
	}
	if len(def.Steps) == 0 {
		return nil, &direrrors.ConfigInvalidError{Key: path, Reason: "steps must be non-empty"}
	}
	def.Index()
	return def, nil
}

// LoadDefinitions reads every *.yaml/*.yml file directly under dir,
// keyed by Definition.ID, for Engine construction and the `workflow`
// CLI command group. A missing directory is not an error: it loads as
// an empty set, since a freshly-initialized orchestrator has none yet.
func LoadDefinitions(dir string) (map[string]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]*Definition{}, nil
	}
	if err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: dir, Reason: "list failed", Cause: err}
	}

	defs := make(map[string]*Definition, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		def, err := LoadDefinitionFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs[def.ID] = def
	}
	return defs, nil
}

// DefinitionPath resolves the canonical file path for workflow id under
// an orchestrator root.
func DefinitionPath(orchestratorRoot, id string) string {
	return filepath.Join(orchestratorRoot, DefinitionsSubdir, id+".yaml")
}

// SaveDefinition atomically writes def to its canonical path under
// orchestratorRoot, for the `workflow add` CLI command.
func SaveDefinition(orchestratorRoot string, def *Definition) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return &direrrors.ConfigInvalidError{Key: def.ID, Reason: "marshal failed", Cause: err}
	}
	path := DefinitionPath(orchestratorRoot, def.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &direrrors.ConfigInvalidError{Key: path, Reason: "mkdir failed", Cause: err}
	}
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.ConfigInvalidError{Key: path, Reason: "write failed", Cause: err}
	}
	return nil
}

// RemoveDefinition deletes workflow id's definition file under
// orchestratorRoot, for the `workflow remove` CLI command.
func RemoveDefinition(orchestratorRoot, id string) error {
	path := DefinitionPath(orchestratorRoot, id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &direrrors.UnknownWorkflowError{WorkflowID: id}
		}
		return &direrrors.ConfigInvalidError{Key: path, Reason: "remove failed", Cause: err}
	}
	return nil
}
