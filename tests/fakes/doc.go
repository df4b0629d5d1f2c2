// Package fakes provides test doubles for dscreds provider clients.
//
// This package contains fake implementations of external client interfaces
// that allow unit testing of providers without real service dependencies.
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeKeychainClient()
//	fake.SetSecret("dscreds", "orders", []byte(`{"user":"orders","password":"pw"}`))
//	p := providers.NewKeychainProviderWithClient("keychain", nil, fake)
//	// Test provider methods...
package fakes
