package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidRefreshToken indicates the refresh token is malformed or its
	// signature doesn't match
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken indicates the refresh token has expired
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrRevokedRefreshToken indicates the refresh token was revoked by logout
	ErrRevokedRefreshToken = errors.New("refresh token has been revoked")

	// ErrWrongTokenType indicates a token was presented in the wrong context,
	// e.g. a refresh token sent as a bearer access token
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrInvalidCredentials indicates the email or password did not match.
	// Deliberately covers both cases so responses don't reveal which.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
