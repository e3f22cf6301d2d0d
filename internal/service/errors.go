package service

import "errors"

var (
	// ErrUnauthenticated means the request carries no caller identity
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	// ErrForbidden means the caller is known but may not touch the record
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrNotFound means no record exists with the requested id
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	// ErrInvalidToken is returned for unusable access or refresh tokens
	ErrInvalidToken = errors.New("token is invalid or expired")
)
