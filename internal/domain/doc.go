// Package domain defines the data models, contracts and error taxonomy shared
// across pairchat. It contains plain types (wire/state) and interfaces only.
//
// # Errors
//
// Failures are classified with the sentinel errors declared in errors.go and
// inspected with errors.Is. Lower layers wrap them with context using
// fmt.Errorf and %w, so one error may match several sentinels (for example a
// tampered message matches both ErrTransportDecrypt and ErrAuthentication).
package domain
