package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/config"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var agentTracer = otel.Tracer("service/agent")

const (
	// maxHierarchyDepth bounds both the downline tree and the upline walk.
	maxHierarchyDepth = 5

	dashboardRecentTransactions = 5
	dashboardUpcoming           = 5
)

// AgentService serves agent profiles, the upline/downline hierarchy and the
// per-agent dashboard.
type AgentService struct {
	store         port.AgentStore
	txs           port.TransactionStore
	installments  port.InstallmentStore
	notifications port.NotificationStore
	cache         port.Cache[domain.AgentProfile]
	table         *config.CommissionTable
	adminEmails   map[string]bool
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewAgentService creates an agent service.
func NewAgentService(
	store port.AgentStore,
	txs port.TransactionStore,
	installments port.InstallmentStore,
	notifications port.NotificationStore,
	cache port.Cache[domain.AgentProfile],
	table *config.CommissionTable,
	adminEmails []string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AgentService {
	return &AgentService{
		store:         store,
		txs:           txs,
		installments:  installments,
		notifications: notifications,
		cache:         cache,
		table:         table,
		adminEmails:   emailSet(adminEmails),
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// IsAdminEmail reports whether email is one of the configured administrators.
func (s *AgentService) IsAdminEmail(email string) bool {
	return email != "" && s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
}

// GetProfile returns a profile through the cache, with the administrator
// override applied.
func (s *AgentService) GetProfile(ctx context.Context, agentID string) (*domain.AgentProfile, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	cacheKey := "agent:" + agentID
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("agent")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("agent")

	p, err := s.store.GetAgentProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	s.applyAdmin(p)
	s.cache.Set(cacheKey, *p)
	return p, nil
}

// Profile returns an agent's profile to the agent, an admin or one of the
// agent's uplines.
func (s *AgentService) Profile(ctx context.Context, actor *domain.Principal, agentID string) (*domain.AgentProfile, error) {
	p, err := s.GetProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if requireSelfOrAdmin(actor, agentID, "") == nil {
		return p, nil
	}
	upline, err := s.UplineChain(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := requireTeamViewer(actor, agentID, upline, "view this agent's profile"); err != nil {
		return nil, err
	}
	return p, nil
}

// Me returns the caller's profile. A configured administrator without a
// profile row gets a synthesised one.
func (s *AgentService) Me(ctx context.Context, actor *domain.Principal) (*domain.AgentProfile, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.Me")
	defer span.End()

	if actor == nil {
		return nil, &domain.ErrUnauthorized{}
	}
	p, err := s.GetProfile(ctx, actor.UserID)
	if err == nil {
		if !p.IsAdmin && s.IsAdminEmail(actor.Email) {
			s.promote(p)
		}
		return p, nil
	}

	var nf *domain.ErrNotFound
	if errors.As(err, &nf) && (actor.IsAdmin() || s.IsAdminEmail(actor.Email)) {
		admin := &domain.AgentProfile{
			ID:       actor.UserID,
			Email:    actor.Email,
			FullName: domain.AdministratorTierName,
		}
		s.promote(admin)
		return admin, nil
	}
	return nil, err
}

func (s *AgentService) applyAdmin(p *domain.AgentProfile) {
	if s.IsAdminEmail(p.Email) {
		s.promote(p)
	}
}

func (s *AgentService) promote(p *domain.AgentProfile) {
	p.IsAdmin = true
	p.Tier = domain.AdministratorTier
	p.TierName = domain.AdministratorTierName
}

// Hierarchy returns the agent's downline tree and upline chain.
func (s *AgentService) Hierarchy(ctx context.Context, actor *domain.Principal, agentID string) (*domain.AgentHierarchy, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.Hierarchy")
	defer span.End()

	root, err := s.GetProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	upline, err := s.UplineChain(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := requireTeamViewer(actor, root.ID, upline, "view this agent's hierarchy"); err != nil {
		return nil, err
	}

	seen := map[string]bool{root.ID: true}
	downline, count, err := s.downline(ctx, root.ID, 1, seen)
	if err != nil {
		return nil, err
	}

	return &domain.AgentHierarchy{
		Root:          domain.AgentNode{AgentProfile: *root, Downline: downline},
		Upline:        upline,
		DownlineCount: count,
	}, nil
}

func (s *AgentService) downline(ctx context.Context, agentID string, depth int, seen map[string]bool) ([]domain.AgentNode, int, error) {
	nodes := []domain.AgentNode{}
	if depth > maxHierarchyDepth {
		return nodes, 0, nil
	}

	children, err := s.store.ListDownline(ctx, agentID)
	if err != nil {
		return nil, 0, err
	}

	count := 0
	for _, child := range children {
		if seen[child.ID] {
			continue
		}
		seen[child.ID] = true

		sub, n, err := s.downline(ctx, child.ID, depth+1, seen)
		if err != nil {
			return nil, 0, err
		}
		nodes = append(nodes, domain.AgentNode{AgentProfile: child, Downline: sub})
		count += 1 + n
	}
	return nodes, count, nil
}

// UplineChain walks upline_id links from agent, nearest first. A missing
// upline ends the chain.
func (s *AgentService) UplineChain(ctx context.Context, agent *domain.AgentProfile) ([]domain.AgentProfile, error) {
	chain := []domain.AgentProfile{}
	seen := map[string]bool{agent.ID: true}

	next := agent.UplineID
	for depth := 0; next != nil && *next != "" && depth < maxHierarchyDepth; depth++ {
		if seen[*next] {
			s.logger.Warn("cycle in agent upline chain", zap.String("agent_id", agent.ID), zap.String("upline_id", *next))
			break
		}
		seen[*next] = true

		up, err := s.store.GetAgentProfile(ctx, *next)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				break
			}
			return nil, err
		}
		chain = append(chain, *up)
		next = up.UplineID
	}
	return chain, nil
}

// Overrides computes what each upline earns from amount of this agent's commission.
func (s *AgentService) Overrides(ctx context.Context, actor *domain.Principal, agentID string, amount float64) (*domain.OverrideResponse, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.Overrides")
	defer span.End()

	if amount < 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}

	agent, err := s.GetProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	upline, err := s.UplineChain(ctx, agent)
	if err != nil {
		return nil, err
	}
	if err := requireTeamViewer(actor, agent.ID, upline, "view this agent's overrides"); err != nil {
		return nil, err
	}

	chain := append([]domain.AgentProfile{*agent}, upline...)
	overrides := commission.CalculateOverrides(amount, chain, s.table.Ranks)
	return &domain.OverrideResponse{
		AgentID:        agentID,
		BaseCommission: amount,
		Overrides:      overrides,
		TotalOverride:  commission.TotalOverride(overrides),
	}, nil
}

// UpdateRank sets an agent's rank. Admin only.
func (s *AgentService) UpdateRank(ctx context.Context, actor *domain.Principal, agentID, rank string) (*domain.AgentProfile, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.UpdateRank")
	defer span.End()

	if err := requireAdmin(actor, "change agent rank"); err != nil {
		return nil, err
	}
	if commission.RankLevel(s.table.Ranks, rank) == 0 {
		return nil, &domain.ErrValidation{Field: "rank", Message: "unknown rank " + rank}
	}

	p, err := s.store.UpdateAgentProfile(ctx, agentID, map[string]any{"rank": rank})
	if err != nil {
		return nil, err
	}
	s.cache.Delete("agent:" + agentID)
	s.applyAdmin(p)

	s.logger.Info("agent rank updated", zap.String("agent_id", agentID), zap.String("rank", rank), zap.String("by", actor.UserID))
	return p, nil
}

// Tiers returns the commission tier table ordered by agent percentage.
func (s *AgentService) Tiers() []domain.CommissionTier {
	tiers := make([]domain.CommissionTier, len(s.table.Tiers))
	copy(tiers, s.table.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].AgentPercentage < tiers[j].AgentPercentage })
	return tiers
}

// Dashboard assembles the agent's home screen with concurrent reads.
func (s *AgentService) Dashboard(ctx context.Context, actor *domain.Principal, agentID string) (*domain.AgentDashboard, error) {
	ctx, span := agentTracer.Start(ctx, "AgentService.Dashboard")
	defer span.End()

	if err := requireSelfOrAdmin(actor, agentID, "view another agent's dashboard"); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	var (
		profile      *domain.AgentProfile
		transactions []domain.PropertyTransaction
		installments []domain.CommissionInstallment
		unread       int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.GetProfile(gCtx, agentID)
		profile = p
		return err
	})
	g.Go(func() error {
		t, err := s.txs.ListTransactionsByAgent(gCtx, agentID, dashboardRecentTransactions)
		transactions = t
		return err
	})
	g.Go(func() error {
		i, err := s.installments.ListInstallmentsByAgent(gCtx, agentID)
		installments = i
		return err
	})
	g.Go(func() error {
		n, err := s.notifications.CountUnreadNotifications(gCtx, agentID)
		if err != nil {
			s.logger.Warn("dashboard: unread count unavailable", zap.String("agent_id", agentID), zap.Error(err))
			return nil
		}
		unread = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &domain.AgentDashboard{
		Profile:              profile,
		RecentTransactions:   nonNil(transactions),
		UpcomingInstallments: []domain.CommissionInstallment{},
		UnreadNotifications:  unread,
	}

	today := s.now().Format(commission.DateLayout)
	for _, inst := range installments {
		switch inst.Status {
		case domain.InstallmentStatusPaid:
			d.PaidCommission += inst.Amount
		case domain.InstallmentStatusCancelled:
		default:
			d.PendingCommission += inst.Amount
			if inst.ScheduledDate >= today && len(d.UpcomingInstallments) < dashboardUpcoming {
				d.UpcomingInstallments = append(d.UpcomingInstallments, inst)
			}
		}
	}
	d.PaidCommission = commission.RoundCents(d.PaidCommission)
	d.PendingCommission = commission.RoundCents(d.PendingCommission)

	if _, next := commission.RankForSales(s.table.Ranks, profile.TotalSales); next != nil {
		d.NextRank = next.Name
		d.SalesToNextRank = commission.RoundCents(next.MinSalesValue - profile.TotalSales)
	}
	return d, nil
}
