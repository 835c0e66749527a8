package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panyam/loginhub/client"
)

func testStore(t *testing.T) (*FSCredentialStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFSCredentialStore(path, "")
	if err != nil {
		t.Fatalf("NewFSCredentialStore: %v", err)
	}
	return store, path
}

func testCred(token string) *client.ServerCredential {
	return &client.ServerCredential{
		Token:     token,
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	store, path := testStore(t)

	cred, err := store.GetCredential("https://hub.example.com")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred != nil {
		t.Errorf("absent credential = %+v", cred)
	}

	if err := store.SetCredential("https://hub.example.com", testCred("tok-1")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store over the same file sees the credential
	reloaded, err := NewFSCredentialStore(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	cred, err = reloaded.GetCredential("https://hub.example.com")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred == nil || cred.Token != "tok-1" {
		t.Fatalf("credential = %+v", cred)
	}
}

func TestCredentialStoreNormalizesURLs(t *testing.T) {
	store, _ := testStore(t)

	if err := store.SetCredential("https://hub.example.com/some/path", testCred("tok-1")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	cred, err := store.GetCredential("https://hub.example.com")
	if err != nil || cred == nil {
		t.Fatalf("lookup without path: %+v, %v", cred, err)
	}

	// Scheme defaults to https
	cred, err = store.GetCredential("//hub.example.com")
	if err != nil || cred == nil {
		t.Fatalf("lookup without scheme: %+v, %v", cred, err)
	}
}

func TestCredentialStoreRemove(t *testing.T) {
	store, _ := testStore(t)

	if err := store.SetCredential("https://a.example.com", testCred("tok-a")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.SetCredential("https://b.example.com", testCred("tok-b")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	servers, err := store.ListServers()
	if err != nil {
		t.Fatalf("ListServers: %v", err)
	}
	if len(servers) != 2 {
		t.Errorf("servers = %v", servers)
	}

	if err := store.RemoveCredential("https://a.example.com"); err != nil {
		t.Fatalf("RemoveCredential: %v", err)
	}
	cred, _ := store.GetCredential("https://a.example.com")
	if cred != nil {
		t.Errorf("removed credential still present: %+v", cred)
	}
	cred, _ = store.GetCredential("https://b.example.com")
	if cred == nil {
		t.Error("unrelated credential removed")
	}
}

func TestCredentialStoreFilePermissions(t *testing.T) {
	store, path := testStore(t)

	if err := store.SetCredential("https://hub.example.com", testCred("tok-1")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}

func TestCredentialStoreSaveSkipsWhenClean(t *testing.T) {
	store, path := testStore(t)

	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unmodified Save wrote a file: %v", err)
	}
}
