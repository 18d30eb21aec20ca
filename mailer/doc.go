// Package mailer delivers verification codes over SMTP.
//
// It implements the engine's Deliverer interface with a multipart
// plain-text + HTML message, so any mail client renders something readable.
// The engine never imports this package; wiring happens at assembly time.
package mailer
