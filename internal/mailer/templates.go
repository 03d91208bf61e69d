package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/Br3achBl0ckers/authcore"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/message.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/message.txt.tmpl"))
)

// Brand is the product name used in subjects and templates.
const Brand = "Br3achBl0ckers"

type content struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Brand      string
	Title      string
	Name       string
	Intro      string
	OTP        string
	Link       string
	Action     string
	ExpiresIn  string
	Disclaimer string
	Year       int
}

func render(msg authcore.Message, now time.Time) (content, error) {
	data := templateData{
		Brand:     Brand,
		Name:      msg.Name,
		OTP:       msg.OTP,
		Link:      msg.Link,
		ExpiresIn: humanDuration(msg.ExpiresIn),
		Year:      now.Year(),
	}

	var subject string
	switch msg.Kind {
	case authcore.MessageVerificationOTP:
		subject = "Verify Your Email - " + Brand
		data.Title = "Welcome to " + Brand + "!"
		data.Intro = "To complete your registration, please use the following verification code:"
		data.Disclaimer = "If you didn't create an account with us, you can safely ignore this email."
	case authcore.MessageVerificationLink:
		subject = "Verify Your Email - " + Brand
		data.Title = "Welcome to " + Brand + "!"
		data.Intro = "To complete your registration, please confirm your email address:"
		data.Action = "Verify Email"
		data.Disclaimer = "If you didn't create an account with us, you can safely ignore this email."
	case authcore.MessagePasswordReset:
		subject = "Password Reset Request - " + Brand
		data.Title = "Reset Your Password"
		data.Intro = "We received a request to reset your password. Use the link below to choose a new one:"
		data.Action = "Reset Password"
		data.Disclaimer = "If you didn't request a password reset, you can safely ignore this email."
	default:
		return content{}, fmt.Errorf("unsupported message kind %s", msg.Kind)
	}

	var text, html bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return content{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return content{}, fmt.Errorf("render html body: %w", err)
	}

	return content{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
