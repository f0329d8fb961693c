// Package bootimage tracks the provenance of the embedded user-mode
// bootstrap image user_init maps at address 0. It resolves the git
// repository that built a given image and can diff the commits between two
// builds.
package bootimage

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	CacheDirName     = "xv6go"
	CacheRepoDirName = "bootimage-repos"
)

// Hash is a git commit hash.
type Hash [20]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Person identifies a commit's author or committer.
type Person struct {
	Name  string
	Email string
}

// Commit is the subset of a git commit bootimage cares about.
type Commit struct {
	Hash      Hash
	Date      time.Time
	Committer Person
	Author    Person
	Message   string
}

// Fingerprint is the provenance record for one build of the bootstrap
// image: its sha256 and the commit, in the tracked source repository, that
// was checked out when it was built.
type Fingerprint struct {
	ImageSHA256 string
	Commit      Commit
}

// Repository is a resolved reference to a cloned source repository.
type Repository struct {
	URL     string
	RepoRef *git.Repository
}

// Tracker resolves and caches the git repositories that build bootstrap
// images.
type Tracker struct {
	// AccessToken is used for private repositories; empty for public ones.
	AccessToken string
}

func NewTracker(opts ...Tracker) Tracker {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return Tracker{}
}

// Resolve clones (or fetches, if already cached) the repository at url and
// returns a reference to it, caching it under xdg.DataHome the same way the
// teacher's ResolveRepo does.
func (t *Tracker) Resolve(url string) (*Repository, error) {
	fp := filepath.Join(defaultCacheLocation(), encodedCacheName(url))
	if _, err := os.Stat(fp); err != nil {
		return t.clone(url, fp)
	}

	ref, err := git.PlainOpen(fp)
	if err != nil {
		return nil, fmt.Errorf("bootimage: failed opening cached repo: %s", err)
	}
	if err := ref.Fetch(&git.FetchOptions{RemoteURL: url}); err != nil {
		if err != git.NoErrAlreadyUpToDate {
			return nil, fmt.Errorf("bootimage: failed fetching repo updates: %s", err)
		}
	}
	return &Repository{URL: url, RepoRef: ref}, nil
}

func (t *Tracker) clone(url, fp string) (*Repository, error) {
	if err := ensureCacheDir(); err != nil {
		return nil, fmt.Errorf("bootimage: failed ensuring cache dir exists: %s", err)
	}
	ref, err := git.PlainClone(fp, true, &git.CloneOptions{URL: url, NoCheckout: true})
	if err != nil {
		return nil, fmt.Errorf("bootimage: failed cloning %s: %s", url, err)
	}
	return &Repository{URL: url, RepoRef: ref}, nil
}

// Fingerprint256 records the sha256 of image and the commit currently at the
// tip of ref (the commit presumed to have produced it).
func Fingerprint256(r *Repository, ref string, image []byte) (*Fingerprint, error) {
	if r.RepoRef == nil {
		return nil, fmt.Errorf("bootimage: no repository reference to fingerprint against")
	}
	rev, err := r.RepoRef.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("bootimage: failed resolving ref %q: %s", ref, err)
	}
	commitObj, err := r.RepoRef.CommitObject(*rev)
	if err != nil {
		return nil, fmt.Errorf("bootimage: failed loading commit %s: %s", rev, err)
	}
	sum := sha256.Sum256(image)
	return &Fingerprint{
		ImageSHA256: hex.EncodeToString(sum[:]),
		Commit:      commitFrom(commitObj),
	}, nil
}

// Diff returns every commit reachable from "to" but not yet reached when
// walking back to "from" — the commits that changed between two builds'
// worth of bootstrap image, the way "proctor source contrib diff" reports
// what changed between two tags.
func Diff(r *Repository, from, to Hash) ([]Commit, error) {
	if r.RepoRef == nil {
		return nil, fmt.Errorf("bootimage: no repository reference to diff against")
	}
	iter, err := r.RepoRef.Log(&git.LogOptions{
		From:  plumbing.Hash(to),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("bootimage: failed walking log from %s: %s", to, err)
	}

	var commits []Commit
	err = iter.ForEach(func(o *object.Commit) error {
		if Hash(o.Hash) == from {
			return fmt.Errorf("bootimage: stop")
		}
		commits = append(commits, commitFrom(o))
		return nil
	})
	if err != nil && err.Error() != "bootimage: stop" {
		return nil, err
	}
	return commits, nil
}

func commitFrom(o *object.Commit) Commit {
	return Commit{
		Hash: Hash(o.Hash),
		Date: o.Committer.When,
		Committer: Person{
			Name:  o.Committer.Name,
			Email: o.Committer.Email,
		},
		Author: Person{
			Name:  o.Author.Name,
			Email: o.Author.Email,
		},
		Message: o.Message,
	}
}

func ensureCacheDir() error {
	cacheFp := defaultCacheLocation()
	if _, err := os.Stat(cacheFp); err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(cacheFp, 0777)
		}
		return err
	}
	return nil
}

// defaultCacheLocation returns $XDG_DATA_HOME/xv6go/bootimage-repos, where
// cloned source repositories are cached.
func defaultCacheLocation() string {
	return filepath.Join(xdg.DataHome, CacheDirName, CacheRepoDirName)
}

func encodedCacheName(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}
