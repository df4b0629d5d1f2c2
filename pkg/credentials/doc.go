// Package credentials defines the credential-resolution SPI used by dscreds.
//
// A consumer that needs a username and password (a connection pool, a
// message broker client, an HTTP client with basic auth) does not read them
// from static configuration. It asks a Registry for the current
// CredentialSet of a logical provider name, and the Registry delegates to
// whichever Provider was registered under that name at start-up.
//
// # Provider Interface
//
// Provider has a single method:
//
//	Credentials(ctx context.Context, name string) (CredentialSet, error)
//
// It deliberately returns a map rather than typed accessors. Providers may
// add keys beyond the reserved ones (lease identifiers, session tokens,
// expiry timestamps, connection hints) without any interface change, and
// consumers forward the keys they do not understand to the lower-level
// client they configure.
//
// # Reserved Keys
//
//   - UserKey ("user"): the principal to authenticate as
//   - PasswordKey ("password"): the secret for that principal
//
// # Registry
//
//	reg := credentials.NewRegistry()
//	if err := reg.Register("orders-db", vaultProvider); err != nil {
//	    return err
//	}
//
//	creds, err := reg.Resolve(ctx, "orders-db")
//	if err != nil {
//	    return err
//	}
//	dsn := fmt.Sprintf("user=%s password=%s", creds.User(), creds.Password())
//
// Every Resolve call goes to the provider. The registry never caches,
// retries, or applies a timeout; providers that need those behaviours
// implement them, and callers that want a deadline put it on ctx.
//
// # Error Handling
//
//   - DuplicateNameError: a name was registered twice
//   - UnknownProviderError: Resolve was called for a name nobody registered
//   - ProviderLookupError: the provider failed; Unwrap returns its error
//
// Providers report store conditions with NotFoundError and AuthError, which
// reach the caller wrapped in a ProviderLookupError.
//
// # Threading and Concurrency
//
// A Registry is safe for concurrent use. Providers must be safe for
// concurrent Credentials calls; the registry does not serialize them.
package credentials
