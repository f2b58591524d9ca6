package api

import (
	"context"
	"net/http"

	"github.com/fjod/lish_client/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	} `json:"user"`
}

// RegisterRequest carries the fields the registration screen collects.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login exchanges credentials for a session. The caller saves it to the store.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &resp, false); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &Error{Kind: KindMalformed, Message: "server returned no token"}
	}
	return &domain.Session{
		UserID:   resp.User.ID,
		Token:    resp.Token,
		FullName: resp.User.FullName,
		Email:    resp.User.Email,
		Phone:    resp.User.Phone,
	}, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil, false)
}

// RequestOTP asks the backend to send a one-time code to the given email.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/request", nil, otpRequest{Email: email}, nil, false)
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/verify", nil, verifyOTPRequest{Email: email, Code: code}, nil, false)
}

// ResetPassword sets a new password using a verified OTP code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	body := resetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password/reset", nil, body, nil, false)
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password/change", nil, body, nil, true)
}
