//go:build integration

package artifact

import (
	"testing"
)

const (
	badRepo  = "x00/n0t-a-real-0rg-or-repo"
	xv6Repo  = "mit-pdos/xv6-riscv"
	badToken = "badToken"
)

func TestFailWithBadToken(t *testing.T) {
	m := NewManager(ManagerConfig{GHToken: badToken})
	_, err := m.ListReleases(xv6Repo)
	if err == nil {
		t.Log("fail: expected to receive error from using bad token, but did not")
		t.Fail()
	}
}

func TestFailWithInvalidRepo(t *testing.T) {
	m := NewManager()
	_, err := m.ListReleases(badRepo)
	if err == nil {
		t.Log("fail: expected error from using bad repository, but did not")
		t.Fail()
	}
}

func TestListReleases(t *testing.T) {
	m := NewManager()
	releases, err := m.ListReleases(xv6Repo)
	if err != nil {
		t.Logf("fail: error when trying to retrieve release data: %s", err)
		t.Fail()
	}
	if len(releases) < 1 {
		t.Logf("fail: received %d releases, expected at least 1", len(releases))
		t.Fail()
	}
}
