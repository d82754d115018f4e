// Package middleware wraps a ports.RunStore to change what reaches storage.
//
// NewEncryptionMiddleware seals each run in an AES-GCM envelope with key rotation.
// NewPIIMiddleware masks sensitive state keys before they are written.
package middleware
