package sms

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Gateway defines the interface for sending SMS messages
type Gateway interface {
	// SendMessage sends a text message to one mobile number
	SendMessage(ctx context.Context, phone, message string) error

	// GetName returns the name of the SMS gateway implementation
	GetName() string
}

// LogGateway only logs messages; used when SMS_MODE is "dev"
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a new LogGateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// SendMessage logs the message instead of sending it
func (g *LogGateway) SendMessage(ctx context.Context, phone, message string) error {
	g.logger.WithField("phone", phone).Infof("📱 [dev sms] %s", message)
	return nil
}

// GetName returns the name of this SMS gateway
func (g *LogGateway) GetName() string {
	return "Log Gateway"
}
