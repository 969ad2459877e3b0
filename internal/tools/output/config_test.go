package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantRows  int
		wantHits  int
		wantBytes int
	}{
		{
			name:      "zero values use defaults",
			config:    Config{},
			wantRows:  DefaultMaxRows,
			wantHits:  DefaultMaxHits,
			wantBytes: DefaultMaxResponseBytes,
		},
		{
			name:      "negative values use defaults",
			config:    Config{MaxRows: -1, MaxHits: -5, MaxResponseBytes: -10},
			wantRows:  DefaultMaxRows,
			wantHits:  DefaultMaxHits,
			wantBytes: DefaultMaxResponseBytes,
		},
		{
			name:      "values above absolute limits are capped",
			config:    Config{MaxRows: 100000, MaxHits: 100000, MaxResponseBytes: 100 << 20},
			wantRows:  AbsoluteMaxRows,
			wantHits:  AbsoluteMaxHits,
			wantBytes: AbsoluteMaxResponseBytes,
		},
		{
			name:      "custom values are kept",
			config:    Config{MaxRows: 10, MaxHits: 5, MaxResponseBytes: 1024},
			wantRows:  10,
			wantHits:  5,
			wantBytes: 1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.Validate()
			assert.Equal(t, tt.wantRows, got.MaxRows)
			assert.Equal(t, tt.wantHits, got.MaxHits)
			assert.Equal(t, tt.wantBytes, got.MaxResponseBytes)
		})
	}
}

func TestConfigValidate_SlimDefaults(t *testing.T) {
	got := (&Config{SlimOutput: true}).Validate()
	assert.Equal(t, DefaultExcludedFields(), got.ExcludedFields)

	got = (&Config{SlimOutput: false}).Validate()
	assert.Empty(t, got.ExcludedFields)
}

func TestConfigValidate_DoesNotModifyReceiver(t *testing.T) {
	cfg := &Config{}
	_ = cfg.Validate()
	assert.Zero(t, cfg.MaxRows)
}

func TestConfigClone(t *testing.T) {
	var nilConfig *Config
	assert.Nil(t, nilConfig.Clone())

	orig := DefaultConfig()
	clone := orig.Clone()
	clone.ExcludedFields[0] = "changed"
	clone.MaxHits = 1

	assert.Equal(t, "_shards", orig.ExcludedFields[0])
	assert.Equal(t, DefaultMaxHits, orig.MaxHits)
}
