package accountsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GetCaptcha fetches a fresh challenge image (PNG). The matching code is
// kept in the server-side session tied to this client's cookie jar.
func (c *SDKClient) GetCaptcha(ctx context.Context) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/Account/Captcha", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// Login signs in with email and password. captcha may be empty when the
// service runs without challenges.
func (c *SDKClient) Login(ctx context.Context, email, password, captcha string) (*LoginResponse, error) {
	resp, err := c.postForm(ctx, "/Account/Login", url.Values{
		"email":    {email},
		"password": {password},
		"captcha":  {captcha},
	}, nil)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the session cookie and server-side session.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/Account/Logout", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Captcha         string
}

// Register creates an inactive account and triggers the activation mail.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.postForm(ctx, "/Account/Register", url.Values{
		"name":             {req.Name},
		"email":            {req.Email},
		"password":         {req.Password},
		"confirm_password": {req.ConfirmPassword},
		"captcha":          {req.Captcha},
	}, nil)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activate redeems the token from an activation link.
func (c *SDKClient) Activate(ctx context.Context, token string) (*MessageResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/Account/Activate?token="+url.QueryEscape(token), nil, nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks for a reset link. The answer does not reveal whether
// the address is registered.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	resp, err := c.postForm(ctx, "/Account/ForgotPassword", url.Values{"email": {email}}, nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateResetToken checks a reset link without using it.
func (c *SDKClient) ValidateResetToken(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/Account/ResetPassword?token="+url.QueryEscape(token), nil, nil)
	if err != nil {
		return err
	}

	var out MessageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// ResetPassword redeems a reset link with a new password.
func (c *SDKClient) ResetPassword(ctx context.Context, token, password, confirm string) (*MessageResponse, error) {
	resp, err := c.postForm(ctx, "/Account/ResetPassword", url.Values{
		"token":            {token},
		"password":         {password},
		"confirm_password": {confirm},
	}, nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the principal carried by the session token.
func (s *Session) Me(ctx context.Context) (*PrincipalResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/v1/me", nil, s.authHeader())
	if err != nil {
		return nil, err
	}

	var out PrincipalResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword replaces the signed-in account's password.
func (s *Session) ChangePassword(ctx context.Context, current, next, confirm string) error {
	resp, err := s.client.postForm(ctx, "/Account/ChangePassword", url.Values{
		"current_password": {current},
		"new_password":     {next},
		"confirm_password": {confirm},
	}, s.authHeader())
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ResendActivation mails a fresh activation link to an inactive account.
// Requires a back office role.
func (s *Session) ResendActivation(ctx context.Context, userNo string) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost,
		"/v1/admin/accounts/"+url.PathEscape(userNo)+"/activation", nil, s.authHeader())
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
