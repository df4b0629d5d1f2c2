// Package secure keeps credential material encrypted in memory.
//
// It wraps memguard enclaves: values are sealed with XSalsa20Poly1305,
// locked against swapping where the platform allows it, and decrypted only
// into short-lived locked buffers that are wiped on Destroy.
//
// The static provider stores its configured credential sets as SealedSet
// values so that plaintext passwords exist only for the duration of a
// Credentials call:
//
//	sealed, err := secure.Seal(set)
//	if err != nil {
//	    return err
//	}
//	defer sealed.Destroy()
//
//	creds, err := sealed.Open()
//
// On Linux, mlock is bounded by RLIMIT_MEMLOCK; memguard degrades to
// ordinary memory when the limit is exhausted. This package does not
// protect against an attacker who can read the process with root access.
package secure
