/*
Package accountsdk is a small client for the accounts service and the wire
types its HTTP handlers speak.

Public operations live on SDKClient, which keeps a cookie jar so the
server-side session (captcha code) follows the client like a browser:

	client := accountsdk.NewSDKClient("https://accounts.example.com")

	img, err := client.GetCaptcha(ctx) // show img, read the code
	login, err := client.Login(ctx, email, password, code)

Signed-in operations live on Session:

	session := client.NewSession(login.Token)
	me, err := session.Me(ctx)

Every non-success response comes back as an *APIError, which can be matched
against the predefined values:

	if errors.Is(err, accountsdk.ErrInvalidCredentials) {
		// wrong email or password
	}
*/
package accountsdk
