package mailer

import (
	"fmt"
	"html"
)

// emailShell wraps body content in the shared HTML layout used by all
// transactional mail.
func emailShell(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f4f4f4; }
  .content { background-color: white; padding: 30px; border-radius: 5px; }
  .button { display: inline-block; padding: 12px 30px; margin: 20px 0;
            background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; }
  .footer { margin-top: 20px; font-size: 12px; color: #666; }
</style>
</head>
<body>
  <div class="container">
    <div class="content">
      <h2>%s</h2>
      %s
    </div>
  </div>
</body>
</html>`, html.EscapeString(title), body)
}

// VerificationEmail builds the subject and HTML body for an email
// verification message. The URL embeds the plaintext token; this is the only
// place the plaintext leaves the process.
func VerificationEmail(username, verificationURL string) (subject, body string) {
	subject = "Verify your QuoteHub email"
	inner := fmt.Sprintf(`<p>Hello %s,</p>
      <p>Thanks for signing up! Please verify your email by clicking the button below:</p>
      <a href="%s" class="button">Verify Email</a>
      <p>Or copy this link to your browser:</p>
      <p style="word-break: break-all;">%s</p>
      <div class="footer">
        <p>This link will expire in 30 minutes.</p>
        <p>If you didn't sign up, please ignore this email.</p>
      </div>`,
		html.EscapeString(username), verificationURL, verificationURL)
	return subject, emailShell("Email Verification", inner)
}

// PasswordResetEmail builds the subject and HTML body for a password reset
// message.
func PasswordResetEmail(username, resetURL string) (subject, body string) {
	subject = "Reset your QuoteHub password"
	inner := fmt.Sprintf(`<p>Hello %s,</p>
      <p>We received a request to reset your password. Click the button below to choose a new one:</p>
      <a href="%s" class="button">Reset Password</a>
      <p>Or copy this link to your browser:</p>
      <p style="word-break: break-all;">%s</p>
      <div class="footer">
        <p>This link will expire in 15 minutes.</p>
        <p>If you didn't request a reset, please ignore this email.</p>
      </div>`,
		html.EscapeString(username), resetURL, resetURL)
	return subject, emailShell("Password Reset", inner)
}
