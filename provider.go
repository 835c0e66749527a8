package loginhub

// Result is a single completion from a provider's login flow.
// Exactly one of Profile or Err is set.
type Result struct {
	Profile *Identity
	Err     error
}

// Provider is one federated identity integration (Facebook, Google, Apple).
//
// Login begins an asynchronous, presentation-requiring flow and returns
// immediately. Each invocation produces at most one Result on the channel
// returned by Results. The channel stays open across invocations: re-invoking
// Login after a prior completion produces a fresh emission on the same
// channel.
//
// Logout clears any locally cached credential state and must not fail.
type Provider interface {
	Kind() ProviderKind
	Login()
	Logout()
	Results() <-chan Result
}
