package accountsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of every error the service returns.
type ErrorResponse struct {
	// Error is a machine readable code (e.g. "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is safe to show to the user
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Account Types
// ============================================================================

// LoginResponse is returned by POST /Account/Login. The same token is also
// set in the jwtToken cookie.
type LoginResponse struct {
	Token    string `json:"token"`
	Redirect string `json:"redirect"`
	UserNo   string `json:"user_no"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// RegisterResponse is returned by POST /Account/Register.
type RegisterResponse struct {
	UserNo string `json:"user_no"`

	// MailSent is false when the account was created but the activation
	// mail could not be queued. An administrator can re-send it.
	MailSent bool `json:"mail_sent"`
}

// MessageResponse carries a user facing confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// PrincipalResponse describes the signed-in account, taken from the session
// token.
type PrincipalResponse struct {
	UserNo             string `json:"user_no"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	Settings           string `json:"settings,omitempty"`
	CalendarPreference string `json:"calendar_preference,omitempty"`
	ExpiresAt          int64  `json:"expires_at"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency the service needs to be ready.
type HealthChecks struct {
	Database string `json:"database"`
	Sessions string `json:"sessions"`
	Mail     string `json:"mail,omitempty"` // Only when mail goes to a broker
}
