// Package wordlist generates and format-checks human-typeable verification
// codes built from BIP-39 word tables.
//
// A code is a fixed number of distinct words drawn uniformly at random from
// one language table and joined with a separator. Entropy is
// log2(2048^wordCount); two words (~22 bits) are enough for a short-lived,
// attempt-limited secret, which is the only way these codes are meant to be
// used.
//
// Language tables are fully independent: a Generator built for one language
// never matches words from another.
//
// This package must not import any sibling package and performs no I/O.
package wordlist
