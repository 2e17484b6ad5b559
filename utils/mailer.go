package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESMailer sends mail through SES. SendRawEmail is used instead of SendEmail
// so a snapshot image can ride along as a MIME attachment.
type SESMailer struct {
	client *ses.Client
	sender string
}

func NewSESMailer(cfg aws.Config) *SESMailer {
	return &SESMailer{
		client: ses.NewFromConfig(cfg),
		sender: os.Getenv("SES_EMAIL"),
	}
}

func (m *SESMailer) Send(ctx context.Context, to, subject, body string, attachment []byte) error {
	raw, err := buildMIMEMessage(m.sender, to, subject, body, attachment)
	if err != nil {
		return fmt.Errorf("build mail: %w", err)
	}

	_, err = m.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(m.sender),
		Destinations: []string{to},
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

func buildMIMEMessage(from, to, subject, body string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := w.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, err
	}

	if len(attachment) > 0 {
		imgHeader := textproto.MIMEHeader{}
		imgHeader.Set("Content-Type", "image/jpeg")
		imgHeader.Set("Content-Transfer-Encoding", "base64")
		imgHeader.Set("Content-Disposition", `attachment; filename="snapshot.jpg"`)
		part, err := w.CreatePart(imgHeader)
		if err != nil {
			return nil, err
		}
		enc := base64.NewEncoder(base64.StdEncoding, part)
		if _, err := enc.Write(attachment); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
