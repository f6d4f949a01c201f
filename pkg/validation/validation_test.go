package validation

import (
	"errors"
	"strings"
	"testing"

	"boardchat/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ChannelID string `json:"channelId" validate:"required,entityid"`
	Content   string `json:"content" validate:"required,notblank,runemax=10"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(samplePayload{ChannelID: "c1", Content: "hi"}))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(samplePayload{ChannelID: "bad id!", Content: "   "})
	require.Error(t, err)

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.ElementsMatch(t, []string{"channelId", "content"}, vErr.Fields)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStruct_RuneLimit(t *testing.T) {
	err := Struct(samplePayload{ChannelID: "c1", Content: strings.Repeat("é", 11)})
	require.Error(t, err)

	err = Struct(samplePayload{ChannelID: "c1", Content: strings.Repeat("é", 10)})
	assert.NoError(t, err)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"c1", false},
		{"board_2-x", false},
		{"", true},
		{"has space", true},
		{strings.Repeat("a", MaxIDLength+1), true},
	}
	for _, tt := range tests {
		err := ValidateID(tt.id, "channelId")
		if tt.wantErr {
			assert.Error(t, err, tt.id)
		} else {
			assert.NoError(t, err, tt.id)
		}
	}
}

func TestNormalizeContent(t *testing.T) {
	got, err := NormalizeContent("  hello \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = NormalizeContent(" \t ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NormalizeContent(strings.Repeat("x", MaxContentLength+1))
	assert.Error(t, err)
}

func TestValidateChannelName(t *testing.T) {
	assert.NoError(t, ValidateChannelName("random"))
	assert.Error(t, ValidateChannelName(""))
	assert.Error(t, ValidateChannelName(strings.Repeat("n", MaxNameLength+1)))
}
