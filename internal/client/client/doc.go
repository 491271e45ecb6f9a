// Package client contains the CLI's side of the shieldauth wire protocol.
//
// # Overview
//
// The package provides:
//  1. An API contract (see the Client interface) mirroring the server's
//     AuthService: RegisterPasskey, SetupTOTP, Login, Session, Logout,
//     ExtractText and AnalyzeText.
//  2. A gRPC implementation (see GRPCClient) that sends google.protobuf.Struct
//     messages, attaches the bearer token to protected calls and maps gRPC
//     status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     SQLite state store that keeps the current session between commands.
//
// # Error Handling
//
// Conditions callers branch on are sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrAlreadyExists, ErrInvalidArgument,
// ErrUpstream.
package client
