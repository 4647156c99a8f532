package recognize

import (
	"fmt"
	"strings"
)

// Model identifies a recognition checkpoint.
type Model string

// Supported recognition models. The unversioned names alias the latest release.
const (
	ModelV2CTC  Model = "v2_ctc"
	ModelV2RNNT Model = "v2_rnnt"
	ModelV1CTC  Model = "v1_ctc"
	ModelV1RNNT Model = "v1_rnnt"
	ModelCTC    Model = "ctc"
	ModelRNNT   Model = "rnnt"
)

// DefaultModel is used when no model is configured.
const DefaultModel = ModelV2CTC

var modelDescriptions = map[Model]string{
	ModelV2CTC:  "v2 CTC decoder (fast, default)",
	ModelV2RNNT: "v2 RNN-T decoder (more accurate, slower)",
	ModelV1CTC:  "v1 CTC decoder",
	ModelV1RNNT: "v1 RNN-T decoder",
	ModelCTC:    "alias of the latest CTC model",
	ModelRNNT:   "alias of the latest RNN-T model",
}

// Models returns the supported models in display order.
func Models() []Model {
	return []Model{ModelV2CTC, ModelV2RNNT, ModelV1CTC, ModelV1RNNT, ModelCTC, ModelRNNT}
}

// ParseModel validates a model identifier. Matching is case-insensitive and
// accepts '-' in place of '_'. Empty input yields DefaultModel.
func ParseModel(s string) (Model, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return DefaultModel, nil
	}
	norm = strings.ReplaceAll(norm, "-", "_")
	m := Model(norm)
	if _, ok := modelDescriptions[m]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownModel, s, modelList())
	}
	return m, nil
}

// Description returns a one-line summary of the model.
func (m Model) Description() string {
	return modelDescriptions[m]
}

// String returns the identifier.
func (m Model) String() string {
	return string(m)
}

func modelList() string {
	names := make([]string, 0, len(modelDescriptions))
	for _, m := range Models() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
