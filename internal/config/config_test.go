package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty uses default", value: "", want: 5 * time.Second},
		{name: "explicit", value: "250ms", want: 250 * time.Millisecond},
		{name: "garbage", value: "soon", wantErr: true},
		{name: "zero", value: "0s", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration("error-timeout", tt.value, 5*time.Second)
			if tt.wantErr {
				assert.ErrorContains(t, err, "error-timeout")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
