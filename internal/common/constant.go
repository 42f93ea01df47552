package common

// RefreshTokenCookieName is the cookie that carries the refresh token.
const RefreshTokenCookieName = "refreshToken"

// AuthorizationHeader and BearerPrefix describe how access tokens travel on
// protected requests.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)
