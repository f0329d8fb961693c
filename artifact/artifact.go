// Package artifact retrieves prebuilt bootstrap images from GitHub
// releases and verifies them by sha256 before kernel.Machine.Boot embeds
// them.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

// Release is one GitHub release's worth of downloadable bootstrap images.
type Release struct {
	Name   string
	Tag    string
	Images []Image
}

// Image is a single release asset that may be a bootstrap image.
type Image struct {
	Name        string
	DownloadURL string
	ContentType string
}

// Retriever fetches bootstrap image releases for a repo.
type Retriever interface {
	ListReleases(repoURL string) ([]Release, error)
	FetchAndVerify(image Image, expectedSHA256 string) ([]byte, error)
}

// Manager is the GitHub-backed Retriever.
type Manager struct {
	ManagerConfig
	client     *github.Client
	httpClient *http.Client
}

// ManagerConfig provides configuration options for creating a Manager.
type ManagerConfig struct {
	// GHToken is used when interacting with GitHub; required for private
	// repositories.
	GHToken string
}

// NewManager takes an optional configuration (conf) and returns a Manager.
// If required configuration values aren't set, defaults are used. While
// conf is variadic, only the last argument passed is used.
func NewManager(conf ...ManagerConfig) Manager {
	opts := ManagerConfig{}
	if len(conf) > 0 {
		opts = conf[len(conf)-1]
	}

	var httpClient *http.Client
	if opts.GHToken != "" {
		srcToken := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.GHToken})
		httpClient = oauth2.NewClient(context.Background(), srcToken)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return Manager{
		ManagerConfig: opts,
		client:        github.NewClient(httpClient),
		httpClient:    httpClient,
	}
}

// ListReleases returns every release of repoURL (formatted $ORG/$REPO) and
// its downloadable assets.
func (m *Manager) ListReleases(repoURL string) ([]Release, error) {
	repo := strings.Split(repoURL, "/")
	if len(repo) != 2 {
		return nil, fmt.Errorf("artifact: repoURL (%s) was invalid; expected $ORG_NAME/$REPO_NAME", repoURL)
	}

	releases, _, err := m.client.Repositories.ListReleases(context.Background(), repo[0], repo[1], &github.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("artifact: failed retrieving releases for %s: %s", repoURL, err)
	}

	r := []Release{}
	for _, release := range releases {
		images := []Image{}
		for _, asset := range release.Assets {
			images = append(images, Image{
				Name:        asset.GetName(),
				DownloadURL: asset.GetBrowserDownloadURL(),
				ContentType: asset.GetContentType(),
			})
		}
		r = append(r, Release{
			Name:   release.GetName(),
			Tag:    release.GetTagName(),
			Images: images,
		})
	}
	return r, nil
}

// FetchAndVerify downloads image's bytes and sha256-verifies them against
// expectedSHA256 (hex-encoded). A mismatch is an error — the caller should
// not pass an unverified image to UserInit/Boot.
func (m *Manager) FetchAndVerify(image Image, expectedSHA256 string) ([]byte, error) {
	resp, err := m.httpClient.Get(image.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("artifact: failed downloading %s: %s", image.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact: failed downloading %s: unexpected status %s", image.Name, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("artifact: failed reading %s: %s", image.Name, err)
	}

	sum := sha256.Sum256(body)
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(actual, expectedSHA256) {
		return nil, fmt.Errorf("artifact: sha256 mismatch for %s: expected %s, got %s", image.Name, expectedSHA256, actual)
	}
	return body, nil
}
