package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/hclspace"
	"github.com/vk/opfuzz/internal/report"
	"github.com/vk/opfuzz/internal/testutil"
)

// setupAppTest creates a new app instance with debug logging captured.
func setupAppTest(t *testing.T, cfg Config) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	if cfg.Streams == 0 {
		cfg.Streams = 1
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("OPFUZZ_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return NewApp(out, logs, validated), out, logs
}

func TestNewConfig(t *testing.T) {
	valid := Config{Trials: 1, Streams: 1}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"serve only", func(c *Config) { c.Trials, c.ServePort = 0, 8080 }, ""},
		{"dump only", func(c *Config) { c.Trials, c.DumpSpacePath = 0, "-" }, ""},
		{"negative trials", func(c *Config) { c.Trials = -1 }, "must not be negative"},
		{"no streams", func(c *Config) { c.Streams = 0 }, "at least 1"},
		{"dim too large", func(c *Config) { c.Dim = 4 }, "dim 4 outside"},
		{"bad port", func(c *Config) { c.ServePort = 70000 }, "out of range"},
		{"nothing to do", func(c *Config) { c.Trials = 0 }, "nothing to do"},
		{"unknown scale", func(c *Config) { c.Scale = binary.Scale(9) }, "unknown scale"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			got, err := NewConfig(cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, *got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	newLogger("bogus", "text", &buf).Debug("dropped")
	assert.Empty(t, buf.String())
}

func TestRunWritesRecordsInStreamOrder(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Seed:        40,
		Scale:       binary.Medium,
		Attributes:  binary.DefaultAttributes(),
		Trials:      4,
		Streams:     3,
		XLSXPath:    filepath.Join(dir, "trials.xlsx"),
		SummaryPath: filepath.Join(dir, "summary.json"),
	}
	a, out, logs := setupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))

	records := testutil.DecodeJSONLines[report.Record](t, out)
	require.Len(t, records, 12)
	for i, r := range records {
		assert.Equal(t, int64(40+i/4), r.Seed)
		assert.Equal(t, i%4, r.Index)
		assert.Equal(t, report.TrialID(r.Seed, binary.Medium, r.Index).String(), r.ID)
	}

	again, out2, _ := setupAppTest(t, cfg)
	require.NoError(t, again.Run(context.Background()))
	records2 := testutil.DecodeJSONLines[report.Record](t, out2)
	if diff := cmp.Diff(records, records2); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}

	assert.FileExists(t, cfg.XLSXPath)
	data, err := os.ReadFile(cfg.SummaryPath)
	require.NoError(t, err)
	var summary report.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 12, summary.Trials)
	assert.Contains(t, logs.String(), "Generation finished.")
}

func TestRunWithHCLSpaceMatchesBuiltIn(t *testing.T) {
	base := Config{Seed: 3, Scale: binary.Small, Attributes: binary.DefaultAttributes(), Trials: 10, Dim: 2}

	builtIn, out1, _ := setupAppTest(t, base)
	require.NoError(t, builtIn.Run(context.Background()))

	withHCL := base
	withHCL.SpacePaths = []string{"../../spaces/binary.hcl"}
	withHCL.OutPath = filepath.Join(t.TempDir(), "trials.jsonl")
	fromFile, _, _ := setupAppTest(t, withHCL)
	require.NoError(t, fromFile.Run(context.Background()))

	data, err := os.ReadFile(withHCL.OutPath)
	require.NoError(t, err)
	assert.Equal(t, out1.String(), string(data))

	records := testutil.DecodeJSONLines[report.Record](t, bytes.NewReader(data))
	for _, r := range records {
		assert.Equal(t, 2, r.Dim)
	}
}

func TestNewAppPanicsOnBadSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`parameter "a" {`), 0o600))

	cfg, err := NewConfig(Config{Trials: 1, Streams: 1, SpacePaths: []string{path}})
	require.NoError(t, err)

	defer func() {
		r := recover()
		require.NotNil(t, r, "NewApp should panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorContains(t, err, "failed to load parameter space")
		assert.ErrorContains(t, err, "failed to parse HCL")
	}()
	NewApp(io.Discard, io.Discard, cfg)
}

// renamedOperandsHCL returns the bundled binary space with its tensors
// renamed so the binary fuzzer cannot use it.
func renamedOperandsHCL(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../spaces/binary.hcl")
	require.NoError(t, err)
	src := strings.NewReplacer(`tensor "x"`, `tensor "lhs"`, `tensor "y"`, `tensor "rhs"`).Replace(string(data))
	require.NotEqual(t, string(data), src)
	return []byte(src)
}

func TestNewAppRejectsSpaceWithoutOperands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renamed.hcl")
	require.NoError(t, os.WriteFile(path, renamedOperandsHCL(t), 0o600))

	cfg, err := NewConfig(Config{Scale: binary.Small, Trials: 1, Streams: 1, SpacePaths: []string{path}})
	require.NoError(t, err)

	defer func() {
		r := recover()
		require.NotNil(t, r, "NewApp should panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, binary.ErrIncompatibleSpace)
		assert.ErrorContains(t, err, `missing tensor "x"`)
	}()
	NewApp(io.Discard, io.Discard, cfg)
}

func TestRunDumpsSpace(t *testing.T) {
	t.Run("to output", func(t *testing.T) {
		a, out, _ := setupAppTest(t, Config{Scale: binary.Small, Dim: 2, DumpSpacePath: "-"})
		require.NoError(t, a.Run(context.Background()))

		assert.Contains(t, out.String(), `parameter "dim"`)
		assert.Contains(t, out.String(), `tensor "x"`)
		assert.Contains(t, out.String(), `distribution = "literal"`)
	})

	t.Run("to file reloads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "space.hcl")
		cfg := Config{Scale: binary.Medium, Attributes: binary.DefaultAttributes(), DumpSpacePath: path}
		a, out, logs := setupAppTest(t, cfg)
		require.NoError(t, a.Run(context.Background()))
		assert.Empty(t, out.String())
		assert.Contains(t, logs.String(), "Parameter space written.")

		limits, err := binary.LimitsFor(binary.Medium)
		require.NoError(t, err)
		loaded, err := hclspace.NewLoader(hclspace.Options{
			Variables: limits.Variables(),
			DType:     cfg.Attributes.DType,
			Device:    cfg.Attributes.Device,
		}).Load(context.Background(), path)
		require.NoError(t, err)
		require.NoError(t, binary.CheckSpace(loaded))
		assert.Equal(t, a.Space().Order(), loaded.Order())
		assert.Equal(t, a.Space().Tensors(), loaded.Tensors())
	})
}

func TestWriteRecordsReportsCreateFailure(t *testing.T) {
	a, _, _ := setupAppTest(t, Config{Scale: binary.Small, Trials: 1})
	a.config.OutPath = filepath.Join(t.TempDir(), "missing-dir", "trials.jsonl")
	assert.ErrorContains(t, a.writeRecords(nil), "creating output")
}

func TestServer(t *testing.T) {
	a, _, _ := setupAppTest(t, Config{Seed: 1, Scale: binary.Small, ServePort: 1})
	srv := httptest.NewServer(a.router())
	t.Cleanup(srv.Close)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("trials", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/trials?seed=5&scale=large&n=3&dim=3")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body trialsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(5), body.Seed)
		assert.Equal(t, "large", body.Scale)
		require.Len(t, body.Records, 3)
		for _, r := range body.Records {
			assert.Equal(t, 3, r.Dim)
			assert.GreaterOrEqual(t, r.X.Numel, int64(4096))
		}
		assert.Equal(t, 3, body.Summary.Trials)
	})

	t.Run("defaults", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/trials")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body trialsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(1), body.Seed)
		assert.Equal(t, "small", body.Scale)
		assert.Len(t, body.Records, 10)
	})

	for _, query := range []string{"n=0", "n=abc", "scale=huge", "dim=5", "seed=x"} {
		t.Run("bad "+query, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/trials?" + query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("space", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/space")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, string(hclspace.Encode(a.Space())), string(body))
	})

	t.Run("posted space", func(t *testing.T) {
		data, err := os.ReadFile("../../spaces/binary.hcl")
		require.NoError(t, err)
		resp, err := http.Post(srv.URL+"/trials?n=4&dim=1", "text/plain", bytes.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body trialsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Records, 4)
		for _, r := range body.Records {
			assert.Equal(t, 1, r.Dim)
		}
	})

	t.Run("posted space without operands", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/trials", "text/plain", bytes.NewReader(renamedOperandsHCL(t)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body["error"], "not a binary-op space")
	})
}
