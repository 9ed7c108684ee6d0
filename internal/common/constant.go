package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "bearer"

// MaxUserNameLength mirrors the users.username column width.
const MaxUserNameLength = 32
