package types

// TokenTypeBearer is the token_type label returned with every access token.
const TokenTypeBearer = "bearer"

// Token is the login response payload.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
