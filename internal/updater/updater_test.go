package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

func tarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content))}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func zipped(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// releaseServer serves a release for version whose only asset is archive.
func releaseServer(t *testing.T, u *Updater, version string, archive []byte) *httptest.Server {
	t.Helper()
	name := u.assetName(version)
	mux := http.NewServeMux()
	mux.HandleFunc("/download/"+name, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Release{
			TagName: "v" + version,
			HTMLURL: "https://github.com/" + Repo + "/releases/tag/v" + version,
			Assets:  []Asset{{Name: name, URL: "http://" + r.Host + "/download/" + name}},
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	u.Endpoint = ts.URL + "/latest"
	u.Client = ts.Client()
	return ts
}

func testUpdater(goos string) *Updater {
	u := New()
	u.GOOS, u.GOARCH = goos, "amd64"
	return u
}

// fakeExecutable points the updater at a temp file standing in for the
// running binary.
func fakeExecutable(t *testing.T, u *Updater) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), Binary)
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o755))
	u.executable = func() (string, error) { return path, nil }
	return path
}

// --- Newer ---

func TestNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"0.2.0", "0.3.0", true},
		{"v0.2.0", "v0.2.1", true},
		{"0.9.0", "0.10.0", true},
		{"1.0.0", "1.0.0", false},
		{"1.1.0", "1.0.9", false},
		{"1.0", "1.0.1", true},
		{"dev", "9.9.9", false},
		{"", "1.0.0", false},
		{"1.0.0", "", false},
		{"1.0.0", "garbage", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Newer(tt.current, tt.latest), "%s -> %s", tt.current, tt.latest)
	}
}

func TestAssetName(t *testing.T) {
	assert.Equal(t, "aluconfig_1.2.3_linux_amd64.tar.gz", testUpdater("linux").assetName("1.2.3"))
	assert.Equal(t, "aluconfig_1.2.3_windows_amd64.zip", testUpdater("windows").assetName("1.2.3"))
}

// --- Check ---

func TestCheck_UpdateAvailable(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", nil)

	c, err := u.Check(context.Background(), "v0.2.0")
	require.NoError(t, err)
	assert.True(t, c.Available)
	assert.Equal(t, "0.2.0", c.Current)
	assert.Equal(t, "0.3.0", c.Latest)
	assert.Contains(t, c.URL, "/releases/tag/v0.3.0")
}

func TestCheck_DevBuildNeverUpdates(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", nil)

	c, err := u.Check(context.Background(), "dev")
	require.NoError(t, err)
	assert.False(t, c.Available)
}

func TestCheck_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	u := testUpdater("linux")
	u.Endpoint, u.Client = ts.URL, ts.Client()

	_, err := u.Check(context.Background(), "0.1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCheck_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	u := testUpdater("linux")
	u.Endpoint = url
	_, err := u.Check(context.Background(), "0.1.0")
	assert.Error(t, err)
}

// --- Apply ---

func TestApply_TarGz(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", tarGz(t, "aluconfig_0.3.0/"+Binary, []byte("new")))
	path := fakeExecutable(t, u)

	c, err := u.Check(context.Background(), "0.2.0")
	require.NoError(t, err)
	require.NoError(t, u.Apply(context.Background(), c))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.NoFileExists(t, path+".new")
}

func TestApply_ZipOnWindows(t *testing.T) {
	u := testUpdater("windows")
	releaseServer(t, u, "0.3.0", zipped(t, Binary+".exe", []byte("new.exe")))
	path := fakeExecutable(t, u)

	c, err := u.Check(context.Background(), "0.2.0")
	require.NoError(t, err)
	require.NoError(t, u.Apply(context.Background(), c))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new.exe", string(got))
	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestApply_UpToDate(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", nil)

	c, err := u.Check(context.Background(), "0.3.0")
	require.NoError(t, err)
	assert.ErrorIs(t, u.Apply(context.Background(), c), ErrUpToDate)
	assert.ErrorIs(t, u.Apply(context.Background(), nil), ErrUpToDate)
}

func TestApply_NoAssetForPlatform(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", nil)
	c, err := u.Check(context.Background(), "0.2.0")
	require.NoError(t, err)

	u.GOARCH = "riscv64"
	err = u.Apply(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linux/riscv64")
}

func TestApply_BinaryMissingFromArchive(t *testing.T) {
	u := testUpdater("linux")
	releaseServer(t, u, "0.3.0", tarGz(t, "README.md", []byte("hi")))
	path := fakeExecutable(t, u)

	c, err := u.Check(context.Background(), "0.2.0")
	require.NoError(t, err)
	err = u.Apply(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in archive")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestExtract_InvalidArchives(t *testing.T) {
	_, err := extract([]byte("not gzip"), "x.tar.gz")
	assert.Error(t, err)
	_, err = extract([]byte("not zip"), "x.zip")
	assert.Error(t, err)
}
