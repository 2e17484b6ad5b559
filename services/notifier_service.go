package services

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

const alertSubject = "Smart Alert"

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, attachment []byte) error
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// ContactSource resolves a username to its stored notification targets.
type ContactSource interface {
	LookupContact(username string) (*Contact, error)
}

// SNSSMSSender delivers SMS through an SNS direct-publish to the phone number.
type SNSSMSSender struct {
	client   *awssns.Client
	senderID string
}

func NewSNSSMSSender(cfg aws.Config) *SNSSMSSender {
	return &SNSSMSSender{
		client:   awssns.NewFromConfig(cfg),
		senderID: os.Getenv("SNS_SENDER_ID"),
	}
}

func (s *SNSSMSSender) Send(ctx context.Context, phone, message string) error {
	input := &awssns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}
	_, err := s.client.Publish(ctx, input)
	return err
}

// Notifier fans an admitted alert out to the user's email and phone. Both
// channels are best-effort: a failure is logged and never propagated, and
// neither channel waits on the other.
type Notifier struct {
	contacts ContactSource
	email    EmailSender
	sms      SMSSender
	logger   *zap.Logger
}

func NewNotifier(contacts ContactSource, email EmailSender, sms SMSSender, logger *zap.Logger) *Notifier {
	return &Notifier{contacts: contacts, email: email, sms: sms, logger: logger}
}

// Dispatch sends the composite alert message through both channels. A channel
// with no stored target is skipped. Missing contact record skips everything.
func (n *Notifier) Dispatch(ctx context.Context, username, message, snapshotPath string) {
	contact, err := n.contacts.LookupContact(username)
	if err != nil {
		if !errors.Is(err, ErrNoContact) {
			n.logger.Error("contact lookup failed",
				zap.String("username", username), zap.Error(err))
		}
		return
	}

	var attachment []byte
	if snapshotPath != "" {
		if data, err := os.ReadFile(snapshotPath); err == nil {
			attachment = data
		} else {
			n.logger.Warn("snapshot unreadable, sending mail without attachment",
				zap.String("path", snapshotPath), zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	if contact.Email != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.email.Send(ctx, contact.Email, alertSubject, message, attachment); err != nil {
				n.logger.Error("email channel failed",
					zap.String("username", username), zap.Error(err))
			}
		}()
	}
	if contact.Phone != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.sms.Send(ctx, contact.Phone, message); err != nil {
				n.logger.Error("sms channel failed",
					zap.String("username", username), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}
