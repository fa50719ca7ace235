// Package updater checks GitHub for newer aluconfig releases and can
// replace the running binary with the latest one.
//
// The release archive is downloaded into memory, the binary is extracted
// and written next to the executable, then renamed over it. The running
// process keeps the old image; the user restarts to pick up the update.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// Repo is the GitHub repository releases are published to.
	Repo = "HendryAvila/aluconfig"

	// Binary is the executable name inside release archives.
	Binary = "aluconfig"

	defaultTimeout = 10 * time.Second
)

// ErrUpToDate is returned by Apply when there is nothing newer.
var ErrUpToDate = errors.New("already at the latest version")

// Release holds the relevant fields of a GitHub release.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file of a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// Updater talks to the GitHub Releases API.
type Updater struct {
	Endpoint string
	Client   *http.Client
	GOOS     string
	GOARCH   string

	executable func() (string, error)
}

// New returns an Updater for the public aluconfig releases.
func New() *Updater {
	return &Updater{
		Endpoint:   "https://api.github.com/repos/" + Repo + "/releases/latest",
		Client:     &http.Client{Timeout: defaultTimeout},
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		executable: os.Executable,
	}
}

// Check is the outcome of comparing the running version with the latest
// release.
type Check struct {
	Current   string
	Latest    string
	Available bool
	URL       string

	release *Release
}

// Latest fetches the latest release.
func (u *Updater) Latest(ctx context.Context, current string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", Binary+"/"+current)

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: fetch release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: GitHub API returned %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("updater: decode release: %w", err)
	}
	return &rel, nil
}

// Check compares current with the latest release.
func (u *Updater) Check(ctx context.Context, current string) (*Check, error) {
	rel, err := u.Latest(ctx, current)
	if err != nil {
		return nil, err
	}
	c := &Check{
		Current: strings.TrimPrefix(current, "v"),
		Latest:  strings.TrimPrefix(rel.TagName, "v"),
		URL:     rel.HTMLURL,
		release: rel,
	}
	c.Available = Newer(c.Current, c.Latest)
	return c, nil
}

// Apply downloads the release found by c and replaces the running binary.
func (u *Updater) Apply(ctx context.Context, c *Check) error {
	if c == nil || !c.Available {
		return ErrUpToDate
	}

	name := u.assetName(c.Latest)
	var url string
	for _, a := range c.release.Assets {
		if a.Name == name {
			url = a.URL
			break
		}
	}
	if url == "" {
		return fmt.Errorf("updater: no release asset for %s/%s (looking for %s)", u.GOOS, u.GOARCH, name)
	}

	archive, err := u.download(ctx, url)
	if err != nil {
		return err
	}
	bin, err := extract(archive, name)
	if err != nil {
		return err
	}

	path, err := u.executable()
	if err != nil {
		return fmt.Errorf("updater: locate executable: %w", err)
	}
	if path, err = filepath.EvalSymlinks(path); err != nil {
		return fmt.Errorf("updater: resolve executable: %w", err)
	}
	return replace(path, bin, u.GOOS)
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: build download: %w", err)
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// assetName matches GoReleaser's default name_template.
func (u *Updater) assetName(version string) string {
	ext := "tar.gz"
	if u.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", Binary, version, u.GOOS, u.GOARCH, ext)
}

// extract returns the aluconfig binary inside a .tar.gz or .zip archive.
func extract(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractZip(archive)
	}
	return extractTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == Binary || base == Binary+".exe"
}

func extractTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("updater: open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("updater: read tar: %w", err)
		}
		if isBinary(hdr.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("updater: %s binary not found in archive", Binary)
}

func extractZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("updater: open zip: %w", err)
	}
	for _, f := range zr.File {
		if !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("updater: open %s: %w", f.Name, err)
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("updater: %s binary not found in archive", Binary)
}

// replace writes bin next to path and renames it over path. Windows
// cannot overwrite a running executable, so the old one is moved aside
// first.
func replace(path string, bin []byte, goos string) error {
	tmp := path + ".new"
	if err := os.WriteFile(tmp, bin, 0o755); err != nil {
		return fmt.Errorf("updater: write new binary: %w", err)
	}

	if goos == "windows" {
		old := path + ".old"
		_ = os.Remove(old)
		if err := os.Rename(path, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("updater: move current binary aside: %w", err)
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("updater: replace binary: %w", err)
	}
	return nil
}

// Newer reports whether latest is a higher semantic version than current.
// Development builds never report an update.
func Newer(current, latest string) bool {
	c, l := canonical(current), canonical(latest)
	if !semver.IsValid(c) || !semver.IsValid(l) {
		return false
	}
	return semver.Compare(l, c) > 0
}

func canonical(v string) string {
	if v == "" || v == "dev" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
