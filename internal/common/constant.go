package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token.
// gRPC lowercases metadata keys, so this is the wire form of "Authorization".
const AuthorizationHeaderName = "authorization"

// RequestIDHeaderName is the response header echoing the id a request was logged under.
const RequestIDHeaderName = "x-request-id"

// BearerPrefix precedes the opaque session token in the authorization value.
const BearerPrefix = "Bearer "

// SessionTokenBytes is the amount of randomness behind every session token.
const SessionTokenBytes = 32
