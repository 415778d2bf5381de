// Package apperrors defines the error taxonomy shared by services and
// handlers. Handlers match these with errors.As to pick a status code.
package apperrors

// ValidationError reports missing or malformed caller input. Reported as 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// CredentialError reports missing provider credentials in configuration.
type CredentialError struct {
	Msg string
}

func (e *CredentialError) Error() string { return e.Msg }

// GatewayError reports a failed or declined call to the payment provider.
type GatewayError struct {
	Msg string
}

func (e *GatewayError) Error() string { return e.Msg }

// NotFoundError reports a lookup that matched no document. Reported as 404.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func Validation(msg string) error { return &ValidationError{Msg: msg} }
func Credential(msg string) error { return &CredentialError{Msg: msg} }
func Gateway(msg string) error    { return &GatewayError{Msg: msg} }
func NotFound(msg string) error   { return &NotFoundError{Msg: msg} }
