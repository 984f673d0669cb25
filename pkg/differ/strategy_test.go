package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"default", "", "spec-wins", false},
		{"spec-wins", "spec-wins", "spec-wins", false},
		{"collection-wins", "collection-wins", "collection-wins", false},
		{"case insensitive", "Collection-Wins", "collection-wins", false},
		{"whitespace trimmed", "  spec-wins ", "spec-wins", false},
		{"unknown", "coin-flip", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StrategyByName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestResolve(t *testing.T) {
	rec := ChangeRecord{HasConflict: true}

	apply, reason := SpecWins().Resolve(rec)
	assert.False(t, apply)
	assert.NotEmpty(t, reason)

	apply, reason = CollectionWins().Resolve(rec)
	assert.True(t, apply)
	assert.NotEmpty(t, reason)
}
