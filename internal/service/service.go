package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuskit/college-admin-api/pkg/jobs"
	"github.com/campuskit/college-admin-api/pkg/mailer"
)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewMailJobHandler adapts the mail gateway into a queue handler. Unknown
// payload types are dropped with an error so the queue retry loop does not
// spin on them forever.
func NewMailJobHandler(gateway mailer.Gateway, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		switch payload := job.Payload.(type) {
		case InvitationMailJob:
			return gateway.SendInvitation(payload.Email, payload.Role, payload.Department, payload.Subject, payload.Message, payload.CompletionURL, payload.ExpiresAt)
		case VerificationMailJob:
			return gateway.SendVerificationStatus(payload.Email, payload.FullName, payload.Approved)
		default:
			logger.Error("unknown mail job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return fmt.Errorf("unknown mail job type %s", job.Type)
		}
	}
}

// VerificationMailJob notifies an alumni account about its review outcome.
type VerificationMailJob struct {
	Email    string
	FullName string
	Approved bool
}
