package loginhub

import "strings"

// Fixed service/account pair naming the single remembered-credential slot.
const (
	SecretService = "com.panyam.loginhub"
	SecretAccount = "userCredentials"
)

// RememberedCredential is the email/password pair persisted when the user
// opts in to credential re-fill.
type RememberedCredential struct {
	Email    string
	Password string
}

// SecretStore is an opaque key-value secret store. Entries are keyed by a
// service/account pair. Set overwrites any existing entry (delete then
// insert - last writer wins). Get returns nil, nil when no entry exists.
type SecretStore interface {
	Get(service, account string) ([]byte, error)
	Set(service, account string, value []byte) error
	Delete(service, account string) error
}

// encodeCredential serializes a credential into the persisted wire form,
// email and password joined by a single colon.
func encodeCredential(cred *RememberedCredential) []byte {
	return []byte(cred.Email + ":" + cred.Password)
}

// parseCredential re-parses a persisted entry. Entries that do not split
// on ":" into exactly two components are malformed and treated as absent.
func parseCredential(data []byte) *RememberedCredential {
	parts := strings.Split(string(data), ":")
	if len(parts) != 2 {
		return nil
	}
	return &RememberedCredential{Email: parts[0], Password: parts[1]}
}
