package credentials

import "fmt"

// DuplicateNameError is returned by Register when the name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("credentials provider %q is already registered", e.Name)
}

// UnknownProviderError is returned by Resolve for a name that was never registered.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no credentials provider registered as %q", e.Name)
}

// ProviderLookupError wraps a failure raised by a provider during Resolve.
// Err is the provider's error, unchanged.
type ProviderLookupError struct {
	// Name is the registry name the consumer asked for.
	Name string

	// Identity is the name passed to the provider. It equals Name unless
	// the caller used ResolveAs.
	Identity string

	Err error
}

func (e *ProviderLookupError) Error() string {
	if e.Identity != "" && e.Identity != e.Name {
		return fmt.Sprintf("credentials provider %q failed for %q: %v", e.Name, e.Identity, e.Err)
	}
	return fmt.Sprintf("credentials provider %q failed: %v", e.Name, e.Err)
}

func (e *ProviderLookupError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates that the backing store holds no credentials for
// the requested identity.
type NotFoundError struct {
	// Provider is the name of the provider reporting the error.
	Provider string

	// Key is the store location that was looked up.
	Key string
}

func (e *NotFoundError) Error() string {
	return "credentials not found: " + e.Key + " in " + e.Provider
}

// AuthError indicates that the backing store rejected the provider's own
// authentication.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}
