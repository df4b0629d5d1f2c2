// Package contracts defines interfaces for provider client abstractions.
// These interfaces enable dependency injection for testing.
package contracts

// KeychainClient abstracts OS keychain operations for testing
type KeychainClient interface {
	// Query retrieves a stored item from the keychain
	Query(service, account string) ([]byte, error)
}
