package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when creating a room whose name is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for any failed login attempt. It is
	// deliberately generic: name and PIN failures are indistinguishable.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a presented session token has aged out.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a presented session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrDecryptionFailed is returned when a client-supplied ciphertext does
	// not open under the message key.
	ErrDecryptionFailed = errors.New("application: decryption failed")
	// ErrEmptyMessage is returned when a ciphertext opens to an empty payload.
	ErrEmptyMessage = errors.New("application: empty message")
	// ErrNoFile is returned when an upload request carries no file content.
	ErrNoFile = errors.New("application: no file provided")
	// ErrBadUploadFormat is returned when a clipboard upload is not a
	// data:image/<ext>;base64 URL.
	ErrBadUploadFormat = errors.New("application: bad upload format")
	// ErrBadUploadEncoding is returned when a clipboard upload's base64
	// payload does not decode.
	ErrBadUploadEncoding = errors.New("application: bad upload encoding")
	// ErrTokenInvalid is returned when a download token fails to open or parse.
	ErrTokenInvalid = errors.New("application: token invalid")
	// ErrTokenExpired is returned when a download token has outlived its TTL.
	ErrTokenExpired = errors.New("application: token expired")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
