package common

// AuthorizationHeaderName is the HTTP header that carries the access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme prefixes the access token inside the Authorization header.
const BearerScheme = "Bearer"
