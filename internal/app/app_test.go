package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/config"
	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/snapshot"
	"github.com/vk/circuitgrid/internal/testutil"
)

func seedModel() *config.Model {
	return &config.Model{
		App: config.App{BookkeepingInterval: 10 * time.Millisecond, SnapshotInterval: 10 * time.Millisecond},
		Design: config.Design{
			Name: "cpu",
			Circuits: []config.Circuit{
				{
					Name: "main",
					Components: []config.Component{
						{Name: "ha", Subcircuit: "half_adder", Label: "HA0"},
					},
				},
				{
					Name: "half_adder",
					Components: []config.Component{{
						Name: "x1", Factory: "XOR Gate", X: 40, Y: 20, Width: 1,
						Ports: []config.Port{
							{X: 0, Y: 10, Direction: "input"},
							{X: 30, Y: 10, Direction: "output"},
						},
					}},
					Wires: []config.Wire{{X0: 10, Y0: 30, X1: 40, Y1: 30}},
				},
			},
		},
	}
}

func disabledHTTP() *Config {
	port := 0
	return &Config{HealthPort: &port}
}

func newTestApp(t *testing.T, cfg *Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()
	buf := &testutil.SafeBuffer{}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	a, err := NewApp(buf, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, buf
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []map[string]any
}

func (f *fakeEmitter) Emit(_ string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, args[0].(map[string]any))
	return nil
}

func (f *fakeEmitter) Close() error { return nil }

func (f *fakeEmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestNewApp_SeedsDesign(t *testing.T) {
	a, _ := newTestApp(t, disabledHTTP(), WithModel(seedModel()))

	d := a.Design()
	assert.Equal(t, "cpu", d.Name())
	main, ok := d.Circuit("main")
	require.True(t, ok)
	ha, ok := d.Circuit("half_adder")
	require.True(t, ok)

	require.Len(t, main.NonWires(), 1)
	inst := main.NonWires()[0]
	assert.Equal(t, "HA0", inst.Label())
	assert.Equal(t, []*circuit.Circuit{ha}, main.Subcircuits())
	assert.Equal(t, []*circuit.Circuit{main}, ha.CircuitsUsingThis())

	require.Len(t, ha.NonWires(), 1)
	xor := ha.NonWires()[0]
	assert.Equal(t, []comp.Port{
		{Loc: geom.At(40, 30), Width: 1, Dir: comp.Input},
		{Loc: geom.At(70, 30), Width: 1, Dir: comp.Output},
	}, xor.Ports())
	assert.True(t, xor.Bounds().Contains(geom.At(70, 30)))
	assert.Len(t, ha.Wires(), 1)
	assert.Equal(t, 1, ha.Width(geom.At(10, 30)))
}

func TestNewApp_Errors(t *testing.T) {
	t.Run("unknown factory", func(t *testing.T) {
		m := seedModel()
		m.Design.Circuits[1].Components[0].Factory = "Flux Capacitor"
		_, err := NewApp(&testutil.SafeBuffer{}, disabledHTTP(), WithModel(m))
		require.ErrorIs(t, err, snapshot.ErrUnknownFactory)
	})
	t.Run("contents on a gate", func(t *testing.T) {
		m := seedModel()
		m.Design.Circuits[1].Components[0].Contents = []uint32{1}
		_, err := NewApp(&testutil.SafeBuffer{}, disabledHTTP(), WithModel(m))
		require.ErrorIs(t, err, ErrNotMemory)
	})
	t.Run("invalid override", func(t *testing.T) {
		cfg := disabledHTTP()
		cfg.LogFormat = "xml"
		_, err := NewApp(&testutil.SafeBuffer{}, cfg, WithModel(seedModel()))
		require.ErrorIs(t, err, config.ErrInvalid)
	})
	t.Run("unsupported config file", func(t *testing.T) {
		cfg := disabledHTTP()
		cfg.ConfigPaths = []string{"circuit.toml"}
		_, err := NewApp(&testutil.SafeBuffer{}, cfg)
		require.ErrorContains(t, err, "failed to load configuration")
	})
}

func TestNewApp_LoadsConfigFiles(t *testing.T) {
	dir := t.TempDir()
	hcl := `
app {
  log_format = "json"
}
design "alu" {
  circuit "main" {
    component "c" {
      factory = "Constant"
      port {
        x         = 10
        y         = 0
        width     = 8
        direction = "output"
      }
    }
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alu.hcl"), []byte(hcl), 0o644))

	cfg := disabledHTTP()
	cfg.ConfigPaths = []string{dir}
	a, buf := newTestApp(t, cfg)

	assert.Equal(t, "alu", a.Design().Name())
	c, ok := a.Design().Circuit("main")
	require.True(t, ok)
	assert.Equal(t, 8, c.Width(geom.At(10, 0)))
	assert.Contains(t, buf.String(), `"msg":"Design ready."`)
	assert.Contains(t, buf.String(), `"design":"alu"`)
}

func TestNewLogger(t *testing.T) {
	t.Run("json with design and durations", func(t *testing.T) {
		var buf strings.Builder
		l := newLogger(&buf, config.App{LogLevel: "debug", LogFormat: "json"}, "cpu")
		l.Debug("tick", "wait", 1500*time.Millisecond)

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(buf.String()), &rec))
		assert.Equal(t, "tick", rec["msg"])
		assert.Equal(t, "cpu", rec["design"])
		assert.Equal(t, "1.5s", rec["wait"])
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf strings.Builder
		l := newLogger(&buf, config.App{LogLevel: "loud"}, "")
		l.Debug("hidden")
		l.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.NotContains(t, buf.String(), "design=")
	})
}

func TestNewConfig_Normalizes(t *testing.T) {
	cfg, err := NewConfig(Config{LogLevel: "DEBUG", LogFormat: "JSON"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	_, err = NewConfig(Config{ConfigPaths: []string{""}})
	require.Error(t, err)
}

func TestRun_RelaysAndStops(t *testing.T) {
	f := &fakeEmitter{}
	a, buf := newTestApp(t, disabledHTTP(), WithModel(seedModel()), WithEmitter(f))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	ha, _ := a.Design().Circuit("half_adder")
	require.Eventually(t, func() bool { return strings.Contains(buf.String(), "Event bridge started") }, 2*time.Second, 5*time.Millisecond)
	err := circuit.Run(context.Background(), ha, circuit.ReadWrite, "edit", func(ctx context.Context, m *circuit.Mutator) error {
		m.Add(ctx, ha, comp.NewWire(geom.At(70, 30), geom.At(90, 30)))
		return nil
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, ha.IsAnnotated, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Contains(t, buf.String(), "Snapshots disabled")
}

func TestRun_SnapshotsSurviveRestart(t *testing.T) {
	dataDir := t.TempDir()
	cfg := disabledHTTP()
	cfg.DataDir = dataDir

	first, _ := newTestApp(t, cfg, WithModel(seedModel()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()

	ha, _ := first.Design().Circuit("half_adder")
	require.Eventually(t, func() bool { return !ha.Modified() }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	empty := &config.Model{}
	second, buf := newTestApp(t, cfg, WithModel(empty))
	assert.Contains(t, buf.String(), "restored=true")

	names := []string{}
	for _, c := range second.Design().Circuits() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"main", "half_adder"}, names)

	ha2, _ := second.Design().Circuit("half_adder")
	main2, _ := second.Design().Circuit("main")
	assert.Len(t, ha2.NonWires(), 1)
	assert.Len(t, ha2.Wires(), 1)
	assert.False(t, ha2.Modified())
	assert.Equal(t, []*circuit.Circuit{ha2}, main2.Subcircuits())
	assert.Equal(t, config.DefaultDesignName, second.Design().Name())
}

func TestNewApp_MemoryContentsSurviveRestart(t *testing.T) {
	cfg := disabledHTTP()
	cfg.DataDir = t.TempDir()
	m := &config.Model{Design: config.Design{Circuits: []config.Circuit{{
		Name: "main",
		Components: []config.Component{{
			Name: "boot", Factory: "ROM", Width: 8, AddrBits: 4, Label: "BOOT",
			Contents: []uint32{0x12, 0x34, 0x1ff},
		}},
	}}}}

	first, _ := newTestApp(t, cfg, WithModel(m))
	main, _ := first.Design().Circuit("main")
	rom := main.NonWires()[0].(comp.MemoryHolder).Contents()
	require.NotNil(t, rom)
	assert.Equal(t, 16, rom.Len())
	assert.Equal(t, []uint32{0x12, 0x34, 0xff, 0}, rom.GetRange(0, 4))

	rom.Set(15, 0x99)
	ctx, _ := testutil.Context(t)
	require.NoError(t, first.saveModified(ctx))
	require.NoError(t, first.Close())

	second, buf := newTestApp(t, cfg, WithModel(&config.Model{}))
	assert.Contains(t, buf.String(), "restored=true")
	main2, _ := second.Design().Circuit("main")
	rom2 := main2.NonWires()[0].(comp.MemoryHolder).Contents()
	require.NotNil(t, rom2)
	assert.Equal(t, 8, rom2.Width())
	assert.Equal(t, []uint32{0x12, 0x34, 0xff}, rom2.GetRange(0, 3))
	assert.Equal(t, uint32(0x99), rom2.Get(15))
}

func TestHTTPServer_Endpoints(t *testing.T) {
	a, _ := newTestApp(t, disabledHTTP(), WithModel(seedModel()))
	srv := httptest.NewServer(a.newHTTPServer(0).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/circuits")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got []circuitStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "main", got[0].Name)
	assert.Equal(t, "half_adder", got[1].Name)
	assert.Equal(t, 1, got[1].Components)
	assert.Equal(t, 1, got[1].Wires)
	assert.True(t, got[1].Modified)
	assert.NotEmpty(t, got[1].Problems, "the xor input is undriven")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheck_ReportsProblems(t *testing.T) {
	m := &config.Model{Design: config.Design{Circuits: []config.Circuit{{
		Name: "bus",
		Components: []config.Component{
			{Factory: "Buffer", X: 0, Y: 0, Ports: []config.Port{{X: 20, Y: 0, Width: 4, Direction: "output"}}},
			{Factory: "Buffer", X: 10, Y: 0, Ports: []config.Port{{X: 10, Y: 0, Width: 4, Direction: "output"}}},
			{Factory: "Register", X: 40, Y: 0, Ports: []config.Port{{X: 0, Y: 0, Width: 4, Direction: "input"}}},
		},
		Wires: []config.Wire{{X0: 20, Y0: 0, X1: 40, Y1: 0}},
	}}}}
	a, buf := newTestApp(t, disabledHTTP(), WithModel(m))

	n, err := a.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "bus: 1 nets, 1 problems")
	assert.Contains(t, buf.String(), "multiple_drivers")

	c, _ := a.Design().Circuit("bus")
	assert.True(t, c.IsAnnotated())
	for _, x := range c.NonWires() {
		if x.Factory().RequiresLabel {
			assert.NotEmpty(t, x.Label())
		}
	}
}
