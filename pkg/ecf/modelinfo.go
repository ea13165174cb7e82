package ecf

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// ModelInfoVersion is the schema version of the model info section
// payload.
const ModelInfoVersion = 1

// ModelInfo is the JSON payload of the SectionModelInfo section. It
// carries everything needed to rebuild the encoder architecture before
// loading weights.
type ModelInfo struct {
	Format        string    `json:"format"`
	FormatVersion int       `json:"format_version"`
	Arch          string    `json:"arch"`
	CreatedAt     time.Time `json:"created_at"`

	VocabSize int   `json:"vocab_size"`
	EmbedDim  int   `json:"embed_dim"`
	HiddenDim int   `json:"hidden_dim"`
	Seed      int64 `json:"seed"`

	Fingerprint string `json:"fingerprint,omitempty"`
}

// EncodeModelInfo serializes mi, stamping the format identity fields.
func EncodeModelInfo(mi *ModelInfo) ([]byte, error) {
	if mi == nil {
		return nil, errors.New("ecf: nil model info")
	}
	if mi.Arch == "" {
		return nil, errors.New("ecf: model info needs an arch")
	}
	out := *mi
	out.Format = "ecf"
	out.FormatVersion = ModelInfoVersion
	return json.Marshal(&out)
}

// ParseModelInfo decodes and validates a model info payload.
func ParseModelInfo(data []byte) (*ModelInfo, error) {
	var mi ModelInfo
	if err := json.Unmarshal(data, &mi); err != nil {
		return nil, fmt.Errorf("ecf: decode model info: %w", err)
	}
	if mi.Format != "ecf" {
		return nil, fmt.Errorf("%w: model info format %q", ErrCorruptFile, mi.Format)
	}
	if mi.FormatVersion != ModelInfoVersion {
		return nil, fmt.Errorf("%w: model info version %d", ErrUnsupportedVersion, mi.FormatVersion)
	}
	return &mi, nil
}
