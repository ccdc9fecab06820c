package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut)

	logger.Debug("hidden")
	logger.Info("analysed", Fields{"songs": 3})
	logger.Warn("slow")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] analysed songs=3")
	assert.Contains(t, errOut.String(), "[WARN] slow")
	assert.NotContains(t, out.String(), "slow")
}

func TestWithFieldsAndContext(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out)
	logger.SetLevel(DebugLevel)

	component := logger.WithFields(Fields{"component": "key_detector"})
	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})
	component.WithContext(ctx).Debug("detected")

	assert.Contains(t, out.String(), "component=key_detector request_id=abc")
}

func TestFieldsFromContextMissing(t *testing.T) {
	_, ok := FieldsFromContext(context.Background())
	assert.False(t, ok)
}
