package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/pkg/jobs"
)

type sentInvitation struct {
	email, role, department, subject, message, completionURL string
	expiresAt                                                time.Time
}

type mockMailGateway struct {
	invitations   []sentInvitation
	verifications []string
}

func (m *mockMailGateway) SendInvitation(toEmail, role, department, subjectLine, personalMessage, completionURL string, expiresAt time.Time) error {
	m.invitations = append(m.invitations, sentInvitation{
		email:         toEmail,
		role:          role,
		department:    department,
		subject:       subjectLine,
		message:       personalMessage,
		completionURL: completionURL,
		expiresAt:     expiresAt,
	})
	return nil
}

func (m *mockMailGateway) SendVerificationStatus(toEmail, fullName string, approved bool) error {
	m.verifications = append(m.verifications, toEmail)
	return nil
}

func TestMailJobHandlerInvitation(t *testing.T) {
	gateway := &mockMailGateway{}
	handler := NewMailJobHandler(gateway, zap.NewNop())

	expiry := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	err := handler(context.Background(), jobs.Job{
		ID:   "i1",
		Type: "invitation_mail",
		Payload: InvitationMailJob{
			Email:         "head@college.edu",
			Role:          "hod",
			Department:    "Computer Science",
			CompletionURL: "https://portal.example.edu/complete-registration/tok",
			ExpiresAt:     expiry,
		},
	})
	require.NoError(t, err)
	require.Len(t, gateway.invitations, 1)
	sent := gateway.invitations[0]
	assert.Equal(t, "head@college.edu", sent.email)
	assert.Equal(t, "hod", sent.role)
	assert.True(t, sent.expiresAt.Equal(expiry))
}

func TestMailJobHandlerVerification(t *testing.T) {
	gateway := &mockMailGateway{}
	handler := NewMailJobHandler(gateway, zap.NewNop())

	err := handler(context.Background(), jobs.Job{
		ID:      "u1",
		Type:    "verification_mail",
		Payload: VerificationMailJob{Email: "alum@college.edu", FullName: "Grad", Approved: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alum@college.edu"}, gateway.verifications)
}

func TestMailJobHandlerUnknownPayload(t *testing.T) {
	gateway := &mockMailGateway{}
	handler := NewMailJobHandler(gateway, zap.NewNop())

	err := handler(context.Background(), jobs.Job{ID: "x", Type: "mystery", Payload: 42})
	require.Error(t, err)
	assert.Empty(t, gateway.invitations)
}
