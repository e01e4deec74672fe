package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ejiview/internal/config"
	"ejiview/internal/services"
	"ejiview/internal/shared/testutil"
)

const testAPIKey = "test-key"

const nationalCSV = `Location,RPL_EJI,RPL_SVM,RPL_EJI_CBM
United States,0.5,0.5,0.5
`

// testConfig returns a config reading the county and national fixtures with
// every directory under a temp dir. The Prometheus exporter registers on the
// global registry, so metrics stay off unless a test asks for them.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths = config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		LogsDir:    filepath.Join(dir, "logs"),
		ExportsDir: filepath.Join(dir, "exports"),
	}
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.APIKeys = map[string]string{testAPIKey: "ops"}
	cfg.Telemetry.MetricsEnabled = false
	cfg.Data.Sources = []config.SourceConfig{
		{Name: "county", Kind: config.SourceCSV, Path: testutil.WriteFile(t, "county.csv", testutil.CountyCSV)},
		{Name: "national", Kind: config.SourceCSV, Path: testutil.WriteFile(t, "national.csv", nationalCSV)},
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplication(cfg, logger)
	require.NoError(t, err)

	app.WebSocketHub.Start()
	t.Cleanup(app.WebSocketHub.Stop)
	return app
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func postReload(t *testing.T, url, key string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url+"/api/reload", nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewApplicationRequiresConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)
}

func TestNewApplicationWiring(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.DataService)
	assert.NotNil(t, app.HealthService)
	assert.NotNil(t, app.Runtime)
	assert.Equal(t, []string{"county", "national"}, app.Loader.SourceNames())
	assert.False(t, app.DataService.Ready(), "nothing is loaded before Start")
	assert.DirExists(t, app.Config.Paths.LogsDir)
	assert.DirExists(t, app.Config.Paths.ExportsDir)
}

func TestRoutesBeforeLoad(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router)
	defer server.Close()

	status, body := get(t, server.URL+"/api/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, _ = get(t, server.URL+"/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, body = get(t, server.URL+"/api/sources")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "NO_DATA")

	status, body = get(t, server.URL+"/api/catalog")
	assert.Equal(t, http.StatusOK, status, "reference data needs no sources")
	assert.Contains(t, body, "OVERALL")
}

func TestRoutesAfterReload(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router)
	defer server.Close()

	status, body := postReload(t, server.URL, "")
	require.Equal(t, http.StatusUnauthorized, status, body)

	status, body = postReload(t, server.URL, "wrong")
	require.Equal(t, http.StatusUnauthorized, status, body)

	status, body = postReload(t, server.URL, testAPIKey)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"loaded_at"`)

	status, _ = get(t, server.URL+"/api/health/ready")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, server.URL+"/api/sources/county/entities")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"Bernalillo County"`)
	assert.NotContains(t, body, `"Count"`)

	status, body = get(t, server.URL+"/api/sources/county/entities/bernalillo%20county?match=normalized")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"entity_key":"Bernalillo County"`)

	status, body = get(t, server.URL+"/api/compare?a=Bernalillo+County&a_source=county&b=United+States&b_source=national")
	require.Equal(t, http.StatusOK, status, body)

	var resp struct {
		Data struct {
			Metrics []string `json:"metrics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, []string{"OVERALL", "ENVIRONMENTAL_BURDEN", "SOCIAL_VULNERABILITY", "CLIMATE_BURDEN", "COMBINED"}, resp.Data.Metrics)

	status, body = get(t, server.URL+"/api/sources/tract/table")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "SOURCE_NOT_FOUND")
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router)
	defer server.Close()

	status, body := get(t, server.URL+"/api/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "/errors/not-found")

	status, _ = get(t, server.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, status, "metrics disabled")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestReloadBroadcastsOverWebSocket(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connection", hello["type"])

	status, body := postReload(t, server.URL, testAPIKey)
	require.Equal(t, http.StatusOK, status, body)

	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, services.EventSourcesReloaded, event["type"])

	data, ok := event["data"].(map[string]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"county", "national"}, data["sources"])
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricsEnabled = true
	app := newTestApp(t, cfg)
	server := httptest.NewServer(app.Router)
	defer server.Close()

	_, _ = get(t, server.URL+"/api/health")

	status, body := get(t, server.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# TYPE")

	status, body = get(t, server.URL+"/metrics/websocket")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"connections"`)
}

func TestStartStop(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))
	assert.True(t, app.DataService.Ready(), "Start runs the initial load")

	require.NoError(t, app.Stop(ctx))
}

func TestStartWithBrokenSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Sources = []config.SourceConfig{
		{Name: "missing", Kind: config.SourceCSV, Path: filepath.Join(t.TempDir(), "missing.csv")},
	}
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel), "a failed initial load does not stop the server")
	assert.False(t, app.DataService.Ready())
	require.NoError(t, app.Stop(ctx))
}

func TestApplyPathDefaults(t *testing.T) {
	base := t.TempDir()
	paths := config.NewPaths(base, config.PathsConfig{})
	require.NoError(t, os.WriteFile(paths.AliasFile, []byte("version: local\n"), 0o644))
	require.NoError(t, os.WriteFile(paths.CredentialsFile, []byte("{}"), 0o644))

	cfg := config.Default()
	cfg.Logging.FilePath = "ejiview.log"
	cfg.Data.Sources = []config.SourceConfig{
		{Name: "sheet", Kind: config.SourceSheets, SpreadsheetID: "abc"},
		{Name: "own", Kind: config.SourceSheets, SpreadsheetID: "def", CredentialsFile: "/etc/eji/sa.json"},
		{Name: "county", Kind: config.SourceCSV, Path: "county.csv"},
	}

	applyPathDefaults(cfg, paths)

	assert.Equal(t, filepath.Join(paths.LogsDir, "ejiview.log"), cfg.Logging.FilePath)
	assert.Equal(t, paths.AliasFile, cfg.Data.AliasFile)
	assert.Equal(t, paths.CredentialsFile, cfg.Data.Sources[0].CredentialsFile)
	assert.Equal(t, "/etc/eji/sa.json", cfg.Data.Sources[1].CredentialsFile)
	assert.Empty(t, cfg.Data.Sources[2].CredentialsFile)
}

func TestApplyPathDefaultsWithoutFiles(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), config.PathsConfig{})

	cfg := config.Default()
	cfg.Data.Sources = []config.SourceConfig{{Name: "sheet", Kind: config.SourceSheets, SpreadsheetID: "abc"}}
	applyPathDefaults(cfg, paths)

	assert.Empty(t, cfg.Data.AliasFile)
	assert.Empty(t, cfg.Data.Sources[0].CredentialsFile)
}
