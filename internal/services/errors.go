package services

import "errors"

// ErrInvalidCredentials is returned when a password does not match the
// stored hash.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRefreshToken is returned when a refresh token is malformed,
// expired, bound to an unknown user, or no longer the active token for
// its user.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// ErrSelfSubscription is returned when a user attempts to subscribe to
// their own channel.
var ErrSelfSubscription = errors.New("cannot subscribe to own channel")

// ErrBlankField is returned when a profile patch would blank an
// identity field that registration requires to be non-empty.
var ErrBlankField = errors.New("field must not be blank")
