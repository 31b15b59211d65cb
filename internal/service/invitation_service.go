package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/config"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var invitationTracer = otel.Tracer("service/invitation")

const (
	invitationCodeLength = 8
	// Ambiguous characters (0/O, 1/I) are left out.
	invitationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	bcryptCost         = 10
)

// InvitationService invites agents by email and turns accepted invitations
// into agent profiles.
type InvitationService struct {
	store   port.InvitationStore
	agents  port.AgentStore
	mailer  port.Mailer // may be nil
	table   *config.CommissionTable
	ttl     time.Duration
	appURL  string
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewInvitationService creates an invitation service. mailer may be nil, in
// which case invitations are stored but not emailed.
func NewInvitationService(
	store port.InvitationStore,
	agents port.AgentStore,
	mailer port.Mailer,
	table *config.CommissionTable,
	ttl time.Duration,
	appURL string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		store:   store,
		agents:  agents,
		mailer:  mailer,
		table:   table,
		ttl:     ttl,
		appURL:  strings.TrimRight(appURL, "/"),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Invite stores a hashed one-time code for email and mails the code. A mail
// failure leaves the invitation in place with EmailSent false.
func (s *InvitationService) Invite(ctx context.Context, actor *domain.Principal, req *domain.InvitationRequest) (*domain.InvitationResponse, error) {
	ctx, span := invitationTracer.Start(ctx, "InvitationService.Invite")
	defer span.End()

	if err := requireAdmin(actor, "invite agents"); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	code, err := generateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("generate invitation code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash invitation code: %w", err)
	}

	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		CodeHash:  string(hash),
		InvitedBy: actor.UserID,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if req.UplineID != "" {
		upline := req.UplineID
		inv.UplineID = &upline
	}

	created, err := s.store.CreateInvitation(ctx, inv)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrInvitation()

	resp := &domain.InvitationResponse{ID: created.ID, Email: created.Email, ExpiresAt: created.ExpiresAt}
	if s.mailer != nil {
		err := s.mailer.SendInvitation(ctx, domain.InvitationEmail{
			To:         created.Email,
			FirstName:  created.FirstName,
			Code:       code,
			SignupLink: s.signupLink(created.Email),
			ExpiresAt:  created.ExpiresAt,
		})
		if err != nil {
			s.logger.Warn("invitation email failed", zap.String("invitation_id", created.ID), zap.Error(err))
		} else {
			resp.EmailSent = true
		}
	}
	span.SetAttributes(attribute.Bool("email.sent", resp.EmailSent))

	s.logger.Info("agent invited",
		zap.String("invitation_id", created.ID),
		zap.String("by", actor.UserID),
		zap.Bool("email_sent", resp.EmailSent),
	)
	return resp, nil
}

// Accept redeems the newest open invitation for the caller's email and
// creates their agent profile at the entry tier. The Clerk session supplies
// the user id; an existing profile for that user is returned as is. The
// invitation is only consumed once the profile exists.
func (s *InvitationService) Accept(ctx context.Context, actor *domain.Principal, req *domain.AcceptInvitationRequest) (*domain.AgentProfile, error) {
	ctx, span := invitationTracer.Start(ctx, "InvitationService.Accept")
	defer span.End()

	if actor == nil || actor.UserID == "" {
		return nil, &domain.ErrUnauthorized{}
	}
	raw := req.Email
	if raw == "" {
		raw = actor.Email
	}
	email, err := normalizeEmail(raw)
	if err != nil {
		return nil, err
	}
	if actor.Email != "" && !strings.EqualFold(strings.TrimSpace(actor.Email), email) {
		return nil, &domain.ErrForbidden{Action: "accept an invitation sent to another email"}
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, &domain.ErrValidation{Field: "code", Message: "required"}
	}
	span.SetAttributes(attribute.String("user.id", actor.UserID))

	inv, err := s.store.GetOpenInvitation(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.ErrValidation{Field: "code", Message: "invalid or expired invitation"}
		}
		return nil, err
	}
	if !s.now().Before(inv.ExpiresAt) {
		return nil, &domain.ErrValidation{Field: "code", Message: "invalid or expired invitation"}
	}
	if bcrypt.CompareHashAndPassword([]byte(inv.CodeHash), []byte(code)) != nil {
		s.logger.Warn("invitation code mismatch", zap.String("invitation_id", inv.ID))
		return nil, &domain.ErrValidation{Field: "code", Message: "invalid or expired invitation"}
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		name = inv.FirstName
	}
	profile := &domain.AgentProfile{
		ID:       actor.UserID,
		FullName: name,
		Email:    email,
		Tier:     1,
		UplineID: inv.UplineID,
		JoinDate: s.now().UTC().Format("2006-01-02"),
	}
	if len(s.table.Tiers) > 0 {
		entry := s.table.Tiers[0]
		profile.TierName = entry.Name
		profile.CommissionPercentage = entry.AgentPercentage
	}
	if len(s.table.Ranks) > 0 {
		profile.Rank = s.table.Ranks[0].Name
	}

	created, err := s.agents.CreateAgentProfile(ctx, profile)
	if err != nil {
		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			return nil, err
		}
		if created, err = s.agents.GetAgentProfile(ctx, actor.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.store.MarkInvitationUsed(ctx, inv.ID, actor.UserID); err != nil {
		s.logger.Warn("failed to mark invitation used",
			zap.String("invitation_id", inv.ID),
			zap.String("user_id", actor.UserID),
			zap.Error(err),
		)
	}

	s.logger.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("user_id", actor.UserID),
	)
	return created, nil
}

func (s *InvitationService) signupLink(email string) string {
	return s.appURL + "/sign-up?email=" + url.QueryEscape(email)
}

func generateInvitationCode() (string, error) {
	max := big.NewInt(int64(len(invitationAlphabet)))
	b := make([]byte, invitationCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = invitationAlphabet[n.Int64()]
	}
	return string(b), nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "a valid email address is required"}
	}
	return strings.ToLower(addr.Address), nil
}
