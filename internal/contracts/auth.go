package contracts

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=8"`
	Name     string `json:"name" validate:"min=2"`
	Role     Role   `json:"role" validate:"role"`
}

// RegisterForm is what the registration page submits. Only admin and developer
// accounts can be self-registered.
type RegisterForm struct {
	Email           string `json:"email" validate:"email"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name" validate:"min=2"`
	Role            Role   `json:"role" validate:"oneof=admin developer"`
}

// Request drops the confirmation field.
func (f RegisterForm) Request() RegisterRequest {
	return RegisterRequest{Email: f.Email, Password: f.Password, Name: f.Name, Role: f.Role}
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"min=1"`
	NewPassword     string `json:"new_password" validate:"min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"min=8"`
}

// RefreshTokenRequest is the body of POST /auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"min=1"`
}

// TokenResponse is the token pair issued on login, registration and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token" validate:"min=1"`
	RefreshToken string `json:"refresh_token" validate:"min=1"`
	TokenType    string `json:"token_type" validate:"eq=Bearer"`
	ExpiresIn    int    `json:"expires_in" validate:"gt=0"`
}

// RefreshResponse is the data of POST /auth/refresh. The server may rotate
// the refresh token; when it does not, RefreshToken is empty.
type RefreshResponse struct {
	AccessToken  string `json:"access_token" validate:"min=1"`
	RefreshToken string `json:"refresh_token,omitempty" validate:"omitempty"`
	TokenType    string `json:"token_type" validate:"eq=Bearer"`
	ExpiresIn    int    `json:"expires_in" validate:"gt=0"`
}

// Tokens merges r into the pair it refreshes.
func (r RefreshResponse) Tokens(previous TokenResponse) TokenResponse {
	out := TokenResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = previous.RefreshToken
	}
	return out
}

// AuthResult is the data of a successful login or registration.
type AuthResult struct {
	Tokens TokenResponse `json:"tokens"`
	User   AuthUser      `json:"user"`
}

// TokenClaims are the claims the API server puts in an access token.
type TokenClaims struct {
	UserID int64  `json:"user_id" validate:"gt=0"`
	Email  string `json:"email" validate:"email"`
	Role   Role   `json:"role" validate:"role"`
	Exp    int64  `json:"exp" validate:"gt=0"`
	Iat    int64  `json:"iat" validate:"gt=0"`
}

// AuthHeader is the Authorization header of an authenticated request.
type AuthHeader struct {
	Authorization string `json:"authorization" validate:"bearer"`
}

// ProfileForm is the profile section of the profile page.
type ProfileForm struct {
	Name  string `json:"name" validate:"min=2"`
	Email string `json:"email" validate:"email"`
}

func passwordsMatch(field, password, confirm string) []FieldError {
	if password == confirm {
		return nil
	}
	return []FieldError{{Field: field, Rule: "match", Message: "passwords do not match"}}
}

var (
	LoginSchema = NewSchema[LoginRequest]("LoginRequest").
			Message("email", "email", "invalid email address").
			Message("password", "min", "password must be at least 6 characters")

	RegisterSchema = NewSchema[RegisterRequest]("RegisterRequest").
			Default("role", string(RoleDeveloper)).
			Message("password", "min", "password must be at least 8 characters").
			Message("name", "min", "name must be at least 2 characters")

	RegisterFormSchema = NewSchema[RegisterForm]("RegisterForm").
				Default("role", string(RoleDeveloper)).
				Message("password", "min", "password must be at least 8 characters").
				Message("name", "min", "name must be at least 2 characters").
				Message("role", "oneof", "role must be admin or developer").
				Refine(func(f *RegisterForm) []FieldError {
			return passwordsMatch("confirm_password", f.Password, f.ConfirmPassword)
		})

	ChangePasswordSchema = NewSchema[ChangePasswordRequest]("ChangePasswordRequest").
				Message("current_password", "min", "current password is required").
				Message("new_password", "min", "new password must be at least 8 characters").
				Message("confirm_password", "min", "password confirmation must be at least 8 characters").
				Refine(func(r *ChangePasswordRequest) []FieldError {
			return passwordsMatch("confirm_password", r.NewPassword, r.ConfirmPassword)
		})

	RefreshTokenSchema = NewSchema[RefreshTokenRequest]("RefreshTokenRequest").
				Message("refresh_token", "min", "refresh token is required")

	TokenResponseSchema = NewSchema[TokenResponse]("TokenResponse").
				Default("token_type", TokenTypeBearer).
				Default("expires_in", AccessTokenExpires)

	RefreshResponseSchema = NewSchema[RefreshResponse]("RefreshResponse").
				Default("token_type", TokenTypeBearer).
				Default("expires_in", AccessTokenExpires)

	AuthResultSchema = NewSchema[AuthResult]("AuthResult")

	TokenClaimsSchema = NewSchema[TokenClaims]("TokenClaims")

	AuthHeaderSchema = NewSchema[AuthHeader]("AuthHeader")

	ProfileFormSchema = NewSchema[ProfileForm]("ProfileForm").
				Message("name", "min", "name must be at least 2 characters")
)
