package accountsdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to the accounts service. It keeps a cookie jar so the
// server-side session (captcha code, login state) survives between calls
// just as it would in a browser.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second timeout and its own jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // only errors on a bad PublicSuffixList
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Session is an authenticated view of the client holding a session token.
type Session struct {
	client *SDKClient
	token  string
}

// NewSession wraps a session token, e.g. LoginResponse.Token.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}

// Token returns the session token.
func (s *Session) Token() string { return s.token }
