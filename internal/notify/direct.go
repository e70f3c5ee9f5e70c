package notify

import (
	"context"
	"fmt"
	"log/slog"

	"expensify/internal/amqp"
)

// DirectNotifier satisfies the created-event port for deployments without
// a broker: instead of publishing, it mails the note straight away. The
// send happens in the background so a slow SMTP server never holds up the
// create.
type DirectNotifier struct {
	mailer *Mailer
	to     string
}

func NewDirectNotifier(mailer *Mailer, to string) *DirectNotifier {
	return &DirectNotifier{mailer: mailer, to: to}
}

func (n *DirectNotifier) PublishExpenseCreated(_ context.Context, msg *amqp.ExpenseCreatedMessage) error {
	if n.mailer == nil || n.to == "" {
		return fmt.Errorf("direct notifier not configured")
	}
	go func() {
		if err := n.mailer.Send(context.Background(), n.to,
			ExpenseCreatedSubject(msg), ExpenseCreatedBody(msg), nil); err != nil {
			slog.Error("Direct expense notification failed", "error", err, "id", msg.ID, "to", n.to)
		}
	}()
	return nil
}

// ExpenseCreatedSubject renders the per-expense notification subject.
func ExpenseCreatedSubject(msg *amqp.ExpenseCreatedMessage) string {
	return fmt.Sprintf("New expense recorded: %s", msg.Name)
}

// ExpenseCreatedBody renders the per-expense notification body.
func ExpenseCreatedBody(msg *amqp.ExpenseCreatedMessage) string {
	return fmt.Sprintf(
		"A new expense was recorded.\n\n"+
			"  Name:     %s\n"+
			"  Amount:   %.2f %s\n"+
			"  Month:    %s\n"+
			"  Uploaded: %s\n"+
			"  Receipt:  %s\n",
		msg.Name, float64(msg.AmountCents)/100, msg.Currency,
		msg.Month, msg.UploadedBy, msg.ImageHash)
}
