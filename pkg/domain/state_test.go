package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_MergeSkipsTrialResults(t *testing.T) {
	s := domain.State{"vm": "a"}
	s.Merge(domain.Update{"vm": "b", "ip": "10.0.0.1", domain.KeyTrialResults: 42})

	assert.Equal(t, domain.State{"vm": "b", "ip": "10.0.0.1"}, s)
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := domain.State{"count": 1}
	cp := s.Clone()
	cp["count"] = 2

	assert.Equal(t, 1, s["count"])
}

func TestState_Decode(t *testing.T) {
	var cfg struct {
		Polls   int           `mapstructure:"polls"`
		Timeout time.Duration `mapstructure:"timeout"`
		Label   string        `mapstructure:"label"`
	}
	s := domain.State{"polls": "3", "timeout": "150ms", "label": "run-a", "extra": true}

	require.NoError(t, s.Decode(&cfg))
	assert.Equal(t, 3, cfg.Polls)
	assert.Equal(t, 150*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "run-a", cfg.Label)
}

func TestState_DecodeError(t *testing.T) {
	var cfg struct {
		Polls int `mapstructure:"polls"`
	}
	err := domain.State{"polls": "many"}.Decode(&cfg)
	assert.Error(t, err)
}
