package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/direclaw/direclaw/internal/fsutil"
)

// materializeOutputs writes each declared output_files key to its
// resolved path, per spec §4.5 step 8: strings written verbatim,
// objects/arrays pretty-JSON'd, scalars stringified. Writes use atomic
// write (temp + rename + fsync).
func materializeOutputs(runID, stepID string, attempt int, outputPaths map[string]string, raw map[string]any) error {
	for key, path := range outputPaths {
		val, present := raw[key]
		if !present {
			// Key was optional (ParseEnvelope already enforced required
			// keys); nothing to materialize.
			continue
		}
		data, err := marshalOutputValue(val)
		if err != nil {
			return fmt.Errorf("workflow: marshal output %q for run %s step %s attempt %d: %w", key, runID, stepID, attempt, err)
		}
		if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
			return fmt.Errorf("workflow: write output %q to %s: %w", key, path, err)
		}
	}
	return nil
}

func marshalOutputValue(val any) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case map[string]any, []any:
		return json.MarshalIndent(v, "", "  ")
	default:
		return []byte(fmt.Sprintf("%v", v)), nil
	}
}
