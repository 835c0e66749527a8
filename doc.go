// Package loginhub aggregates heterogeneous identity providers behind one
// observable session.
//
// LoginHub separates authentication concerns into three layers: providers,
// the email/password service, and the session coordinator. Providers wrap
// vendor sign-in flows (Facebook, Google, Apple) and normalize their
// results; the service wraps the backend's email/password flows; the
// coordinator reconciles all of them, plus the backend's own session-wide
// auth-state stream, into a single source of truth for "who is logged in".
//
// # Architecture
//
// Provider: one federated integration. Each exposes a fire-and-forget
// Login, a Logout, and a completion channel emitting at most one result
// per invocation.
//
// Backend: the auth/database provider behind the hub. It owns its own
// session and reports every change - including a cold-start restore - on
// an independent auth-state stream.
//
// SessionCoordinator: subscribes everything once, confines all state
// mutation to one run loop, and resolves races between sources with two
// rules: provider completions are first-writer-wins, the backend stream
// is authoritative.
//
// # Basic Usage
//
// Set up stores and a backend:
//
//	import (
//	    "github.com/panyam/loginhub"
//	    "github.com/panyam/loginhub/stores/fs"
//	)
//
//	storagePath := "/path/to/storage"
//	users := fs.NewFSUserStore(storagePath)
//	docs := fs.NewFSDocumentStore(storagePath)
//	sessions := fs.NewFSSessionStore(storagePath)
//	tokens := fs.NewFSTokenStore(storagePath)
//	secrets := fs.NewFSSecretStore(storagePath)
//
//	backend := loginhub.NewLocalBackend(users, docs, sessions, tokens,
//	    &loginhub.ConsoleEmailSender{})
//
// Register providers and build the coordinator:
//
//	google := providers.NewGoogle("", "", "", providers.BrowserPresenter{})
//	svc := loginhub.NewEmailPasswordAuthService(backend)
//	coordinator := loginhub.NewSessionCoordinator(
//	    map[loginhub.ProviderKind]loginhub.Provider{
//	        loginhub.ProviderGoogle: google,
//	    },
//	    svc, backend, secrets)
//
//	updates, cancel := coordinator.Subscribe()
//	defer cancel()
//	coordinator.Login(loginhub.ProviderGoogle)
//	session := <-updates
//
// # Store Implementations
//
// LoginHub provides file-based stores in stores/fs, suitable for
// development and small applications, a GORM-backed set in stores/gorm,
// and a Cloud Datastore set in stores/gae.
//
// # Security
//
// Passwords are hashed using bcrypt with default cost. Password reset
// tokens are cryptographically secure 32-byte values, hex-encoded to 64
// characters, expiring after one hour and deleted after single use. The
// remembered credential lives in a single secret-store slot and never
// appears in logs. Federated flows carry a hashed random nonce for replay
// protection.
package loginhub
