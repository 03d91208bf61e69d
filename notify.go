package authcore

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Br3achBl0ckers/authcore/internal/dispatch"
)

// MessageKind selects the mail template.
type MessageKind int

const (
	// MessageVerificationOTP carries the registration code.
	MessageVerificationOTP MessageKind = iota
	// MessageVerificationLink carries the email verification link.
	MessageVerificationLink
	// MessagePasswordReset carries the password reset link.
	MessagePasswordReset
)

func (k MessageKind) String() string {
	switch k {
	case MessageVerificationOTP:
		return "verification_otp"
	case MessageVerificationLink:
		return "verification_link"
	case MessagePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// Message is an outgoing notification. Exactly one of OTP or Link is set.
type Message struct {
	Kind      MessageKind
	To        string
	Name      string
	OTP       string
	Link      string
	ExpiresIn time.Duration
}

// Notifier delivers messages, typically by email.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

const asyncNotifyTimeout = 30 * time.Second

var errQueueFull = errors.New("notification queue full")

// notifier wraps the configured Notifier with the sync/async dispatch policy.
type notifier struct {
	target  Notifier
	queue   *dispatch.Dispatcher[Message]
	logger  *slog.Logger
	onError func(ctx context.Context, msg Message, err error)
}

func newNotifier(cfg NotificationConfig, target Notifier, logger *slog.Logger, onError func(context.Context, Message, error)) *notifier {
	n := &notifier{
		target:  target,
		logger:  logger,
		onError: onError,
	}
	if cfg.Async {
		n.queue = dispatch.New(dispatch.Config{
			BufferSize: cfg.QueueSize,
			DropIfFull: true,
		}, n.deliverQueued)
	}
	return n
}

// send returns true when the message was queued. In synchronous mode a
// delivery failure is returned as ErrEmailDispatchFailed.
func (n *notifier) send(ctx context.Context, msg Message) (bool, error) {
	if n.queue != nil {
		if !n.queue.Emit(ctx, msg) {
			n.logger.Warn("Auth engine: notification queue full, message dropped",
				slog.String("kind", msg.Kind.String()))
			n.onError(ctx, msg, errQueueFull)
		}
		return true, nil
	}

	if err := n.target.Notify(ctx, msg); err != nil {
		n.logger.Error("Auth engine: failed to send notification",
			slog.String("kind", msg.Kind.String()), slog.Any("error", err))
		n.onError(ctx, msg, err)
		return false, ErrEmailDispatchFailed
	}
	return false, nil
}

func (n *notifier) deliverQueued(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, asyncNotifyTimeout)
	defer cancel()

	if err := n.target.Notify(ctx, msg); err != nil {
		n.logger.Warn("Auth engine: queued notification failed",
			slog.String("kind", msg.Kind.String()), slog.Any("error", err))
		n.onError(ctx, msg, err)
	}
}

func (n *notifier) dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.queue.Dropped()
}

func (n *notifier) close() {
	if n == nil {
		return
	}
	n.queue.Close()
}

// frontendLink joins base and path and sets ?token=.
func frontendLink(base, path, token string) string {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return strings.TrimRight(base, "/") + path + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
