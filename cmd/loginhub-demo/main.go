// Command loginhub-demo runs a login hub with file system storage,
// exposing the HTTP surface on a local port and logging every session
// change the hub publishes.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	lh "github.com/panyam/loginhub"
	"github.com/panyam/loginhub/providers"
	"github.com/panyam/loginhub/stores/fs"
	"github.com/panyam/loginhub/web"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	dataDir := flag.String("data", "./loginhub-data", "directory for file system stores")
	flag.Parse()

	users := fs.NewFSUserStore(*dataDir)
	docs := fs.NewFSDocumentStore(*dataDir)
	sessions := fs.NewFSSessionStore(*dataDir)
	tokens := fs.NewFSTokenStore(*dataDir)
	secrets := fs.NewFSSecretStore(*dataDir)

	backend := lh.NewLocalBackend(users, docs, sessions, tokens, &lh.ConsoleEmailSender{})
	email := lh.NewEmailPasswordAuthService(backend)

	provs := map[lh.ProviderKind]lh.Provider{}
	if os.Getenv("LOGINHUB_GOOGLE_CLIENT_ID") != "" {
		google := providers.NewGoogle("", "", "", providers.BrowserPresenter{})
		provs[lh.ProviderGoogle] = google
	}

	hub := lh.NewSessionCoordinator(provs, email, backend, secrets)
	defer hub.Close()
	hub.LoadRememberedCredential()

	sessionCh, cancel := hub.Subscribe()
	defer cancel()
	go func() {
		for s := range sessionCh {
			if s.IsAuthenticated {
				log.Printf("session: signed in as %s (%s)", s.Profile.DisplayName, s.Profile.Provider)
			} else if s.LastError != "" {
				log.Printf("session: signed out, last error: %s", s.LastError)
			} else {
				log.Printf("session: signed out")
			}
		}
	}()

	srv := web.NewServer("LoginHubDemo", backend)
	srv.Hub = hub

	log.Printf("listening on %s, providers: %s", *addr, providerNames(provs))
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

func providerNames(provs map[lh.ProviderKind]lh.Provider) string {
	if len(provs) == 0 {
		return "password only"
	}
	names := make([]string, 0, len(provs))
	for kind := range provs {
		names = append(names, string(kind))
	}
	return strings.Join(names, ", ")
}
