package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cryptochat/internal/domain"
	"cryptochat/internal/store"
)

func TestPeers_SaveLookupListRemove(t *testing.T) {
	var peers domain.PeerStore = store.NewPeerFileStore(t.TempDir())

	for _, p := range []domain.Peer{
		{Name: "bob", Address: "10.0.0.2"},
		{Name: "alice", Address: "alice.lan:4000"},
	} {
		if err := peers.SavePeer(p); err != nil {
			t.Fatalf("save %s: %v", p.Name, err)
		}
	}

	got, ok, err := peers.LookupPeer("alice")
	if err != nil || !ok || got.Address != "alice.lan:4000" {
		t.Fatalf("lookup alice = %+v, %v, %v", got, ok, err)
	}

	list, err := peers.ListPeers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alice" || list[1].Name != "bob" {
		t.Fatalf("list not sorted by name: %+v", list)
	}

	removed, err := peers.RemovePeer("bob")
	if err != nil || !removed {
		t.Fatalf("remove bob = %v, %v", removed, err)
	}
	if _, ok, _ := peers.LookupPeer("bob"); ok {
		t.Fatal("bob still present after remove")
	}
	if removed, _ := peers.RemovePeer("bob"); removed {
		t.Fatal("second remove reported success")
	}
}

func TestPeers_SaveReplaces(t *testing.T) {
	peers := store.NewPeerFileStore(t.TempDir())
	_ = peers.SavePeer(domain.Peer{Name: "bob", Address: "old"})
	if err := peers.SavePeer(domain.Peer{Name: "bob", Address: "new"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _ := peers.LookupPeer("bob")
	if got.Address != "new" {
		t.Fatalf("address = %q, want new", got.Address)
	}
}

func TestPeers_Invalid(t *testing.T) {
	peers := store.NewPeerFileStore(t.TempDir())
	for _, p := range []domain.Peer{
		{Name: "", Address: "x"},
		{Name: "two words", Address: "x"},
		{Name: "bob", Address: "  "},
	} {
		if err := peers.SavePeer(p); !errors.Is(err, store.ErrInvalidPeer) {
			t.Fatalf("save %+v: want ErrInvalidPeer, got %v", p, err)
		}
	}
}

func TestPeers_EmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	peers := store.NewPeerFileStore(dir)
	list, err := peers.ListPeers()
	if err != nil || len(list) != 0 {
		t.Fatalf("empty store list = %+v, %v", list, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "peers.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := peers.ListPeers(); err == nil {
		t.Fatal("expected error for corrupt peers.json")
	}
}

func TestWriteFileAtomic_CreatesDirsAndMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := store.WriteFileAtomic(path, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}

	b, err := store.ReadFile(filepath.Join(t.TempDir(), "missing"))
	if err != nil || b != nil {
		t.Fatalf("ReadFile(missing) = %q, %v", b, err)
	}
}
