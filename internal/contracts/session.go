package contracts

import "time"

// Session is the signed-in state the console keeps for one browser. IssuedAt
// and ExpiresAt are computed locally when the tokens are received.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	User         AuthUser  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewSession builds a Session from a token pair received at now. The access
// token's exp claim wins over expires_in when it can be read.
func NewSession(tokens TokenResponse, user AuthUser, now time.Time) Session {
	s := Session{User: user}
	s.SetTokens(tokens, now)
	return s
}

// SetTokens replaces every token field, as a refresh does.
func (s *Session) SetTokens(tokens TokenResponse, now time.Time) {
	s.AccessToken = tokens.AccessToken
	s.RefreshToken = tokens.RefreshToken
	s.TokenType = tokens.TokenType
	s.ExpiresIn = tokens.ExpiresIn
	s.IssuedAt = now
	s.ExpiresAt = now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
	if exp, ok := TokenExpiry(tokens.AccessToken); ok {
		s.ExpiresAt = exp
	}
}

// Expired reports whether the access token is no longer usable at now. A
// session without an expiry never expires locally.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Header is the Authorization header value for the session's access token.
func (s Session) Header() string {
	tt := s.TokenType
	if tt == "" {
		tt = TokenTypeBearer
	}
	return tt + " " + s.AccessToken
}

// Tokens returns the token pair the session holds.
func (s Session) Tokens() TokenResponse {
	return TokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
	}
}
