package oauth

// AuthorizeRequest registra un code challenge PKCE (método S256 únicamente).
type AuthorizeRequest struct {
	ClientID            string `json:"client_id"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// AuthorizeResponse devuelve el authorization code de un solo uso.
type AuthorizeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expires_in"`
}

// TokenRequest intercambia code + verifier por un access token.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	ClientID     string `json:"client_id"`
}

// TokenResponse es la respuesta estándar del endpoint de token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
