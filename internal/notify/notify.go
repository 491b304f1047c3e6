package notify

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks . Notifier

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/commpolls/backend/internal/config"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

// Notifier tells the people who decide manager requests that one is waiting.
type Notifier interface {
	ManagerRequested(ctx context.Context, user models.User, req models.ManagerRequest) error
}

// New returns an SMS notifier when Twilio is configured and a log notifier otherwise.
func New(cfg config.Config) Notifier {
	if !cfg.SMSEnabled() {
		return LogNotifier{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &SMSNotifier{sender: client.Api, from: cfg.TwilioFrom, to: cfg.TwilioNotifyTo}
}

// LogNotifier only writes the event to the log.
type LogNotifier struct{}

func (LogNotifier) ManagerRequested(_ context.Context, user models.User, req models.ManagerRequest) error {
	log.WithFields(log.Fields{
		"request_id": req.ID,
		"user_id":    user.ID,
		"username":   user.Username,
	}).Info("📨 Manager request pending review")
	return nil
}

type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier texts a fixed moderator number through Twilio.
type SMSNotifier struct {
	sender messageSender
	from   string
	to     string
}

func (n *SMSNotifier) ManagerRequested(_ context.Context, user models.User, req models.ManagerRequest) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(MessageBody(user, req))

	resp, err := n.sender.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send manager request SMS: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		log.WithField("sid", *resp.Sid).Debug("manager request SMS sent")
	}
	return nil
}

func MessageBody(user models.User, req models.ManagerRequest) string {
	return fmt.Sprintf("CommPolls: %s asked to become a manager (request #%d).", user.Username, req.ID)
}
