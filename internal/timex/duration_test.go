package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "1h", want: time.Hour},
		{in: "15m", want: 15 * time.Minute},
		{in: " 2h30m ", want: 2*time.Hour + 30*time.Minute},
		{in: "xd", wantErr: true},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"7d","b":1000000000}`), &v))
	assert.Equal(t, 168*time.Hour, v.A.Duration)
	assert.Equal(t, time.Second, v.B.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1h\nb: 5000\n"), &v))
	assert.Equal(t, time.Hour, v.A.Duration)
	assert.Equal(t, 5000*time.Nanosecond, v.B.Duration)

	require.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &v))
}

func TestDuration_Decode(t *testing.T) {
	var d Duration
	require.NoError(t, d.Decode("30m"))
	assert.Equal(t, 30*time.Minute, d.Duration)
	require.Error(t, d.Decode("nope"))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}
