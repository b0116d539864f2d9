package factory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	URL     string
	Timeout time.Duration
	Port    int
}

type sinkConf struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Port    int           `json:"port"`
}

func newSinkRegistry(t *testing.T) *Registry[*sink] {
	t.Helper()
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("influx", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, errors.New("url is required")
		}
		return &sink{URL: c.URL, Timeout: c.Timeout, Port: c.Port}, nil
	}))
	return reg
}

func TestRegistryCreateDecodesWeakTypes(t *testing.T) {
	reg := newSinkRegistry(t)
	inst, err := reg.Create(ModuleConfig{Type: "influx", Conf: map[string]any{
		"url":     "http://localhost:8086",
		"timeout": "5s",
		"port":    "8086",
	}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086", inst.URL)
	assert.Equal(t, 5*time.Second, inst.Timeout)
	assert.Equal(t, 8086, inst.Port)
}

func TestRegistryErrors(t *testing.T) {
	reg := newSinkRegistry(t)
	assert.Error(t, reg.Register("influx", nil))
	assert.Error(t, reg.Register("influx", func(map[string]any) (*sink, error) { return nil, nil }))

	_, err := reg.Create(ModuleConfig{Type: "graphite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: influx")

	_, err = reg.Create(ModuleConfig{Type: "influx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create influx")
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"zstd", "jsonl", "none"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"jsonl", "none", "zstd"}, reg.Names())
}
