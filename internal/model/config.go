package model

import "fmt"

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultEmbedDim  = 128
	DefaultHiddenDim = 128
)

// Config holds the sizing and seeding of a Siamese encoder. VocabSize
// must be set; EmbedDim and HiddenDim fall back to the defaults above.
type Config struct {
	VocabSize int
	EmbedDim  int
	HiddenDim int
	Seed      int64
}

func (c Config) withDefaults() Config {
	if c.EmbedDim == 0 {
		c.EmbedDim = DefaultEmbedDim
	}
	if c.HiddenDim == 0 {
		c.HiddenDim = DefaultHiddenDim
	}
	return c
}

func (c Config) validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("vocab size must be positive, got %d", c.VocabSize)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("embed dim must be positive, got %d", c.EmbedDim)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden dim must be positive, got %d", c.HiddenDim)
	}
	return nil
}
