package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPNotifier delivers notification mail over plain SMTP with AUTH.
type SMTPNotifier struct {
	host string
	port int
	user string
	pass string
	from string
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		host: cfg.Host,
		port: cfg.Port,
		user: cfg.User,
		pass: cfg.Pass,
		from: cfg.From,
	}
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: WritersInn <%s>\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}

	err := smtp.SendMail(addr, auth, n.from, []string{to}, []byte(b.String()))

	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (n *SMTPNotifier) SendTaskAssigned(ctx context.Context, in SendTaskAssignedInput) error {
	subject := fmt.Sprintf("New Task Assigned: %s", in.TaskTitle)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>You have been assigned a new task: <strong>%s</strong></p>
<p>%s</p>
<ul>
<li>No use of AI</li>
<li>300 words strictly</li>
<li>APA7 format</li>
</ul>
<p>Deadline: <strong>%s</strong></p>
<p>Submit your completed work before the deadline to receive payment.</p>`,
		in.Name, in.TaskTitle, in.TaskDescription, in.Deadline.Format(time.RFC1123))

	return n.send(ctx, in.Email, subject, body)
}

func (n *SMTPNotifier) SendSubmissionReceived(ctx context.Context, in SendSubmissionReceivedInput) error {
	subject := fmt.Sprintf("Submission Received: %s", in.TaskTitle)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>We have received your submission for <strong>%s</strong>.</p>
<p>KES %.2f has been credited to your account. Your new balance is KES %.2f.</p>
<p>Thank you for writing with us.</p>`,
		in.Name, in.TaskTitle, in.Amount, in.NewBalance)

	return n.send(ctx, in.Email, subject, body)
}

func (n *SMTPNotifier) SendLoginLink(ctx context.Context, in SendLoginLinkInput) error {
	subject := "Your WritersInn Login Link"
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>Click the link below to sign in:</p>
<p><a href="%s">Sign in to WritersInn</a></p>
<p>This link expires at %s and can only be used once.</p>
<p>If you did not request this, ignore this email.</p>`,
		in.Name, in.VerifyURL, in.ExpiresAt.Format(time.RFC1123))

	return n.send(ctx, in.Email, subject, body)
}
