package loginhub

// ProviderKind identifies one authentication path. The set is closed:
// three federated providers plus the local email/password path.
type ProviderKind string

const (
	ProviderFacebook ProviderKind = "facebook"
	ProviderGoogle   ProviderKind = "google"
	ProviderApple    ProviderKind = "apple"
	ProviderPassword ProviderKind = "password"
)

// Identity is the normalized user profile produced by any auth path.
// Values are immutable once constructed; compare with ==.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string // empty when the provider supplied none
	Provider    ProviderKind
}
