package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// director <- leader <- agent-a <- junior
func hierarchyFixture() *fixture {
	f := newFixture()
	f.agents = newAgentStore(
		domain.AgentProfile{ID: "director", FullName: "Dee", Rank: "Team Leader"},
		domain.AgentProfile{ID: "leader", FullName: "Lee", Rank: "Sales Leader", UplineID: ptr("director")},
		domain.AgentProfile{ID: "agent-a", FullName: "Ann", Email: "a@agency.test", Rank: "Advisor", UplineID: ptr("leader"), TotalSales: 1000000},
		domain.AgentProfile{ID: "junior", FullName: "Jun", Rank: "Advisor", UplineID: ptr("agent-a")},
	)
	f.build()
	return f
}

func TestGetProfile_UsesCache(t *testing.T) {
	f := hierarchyFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.agentSvc.GetProfile(ctx, "agent-a"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if f.agents.gets != 1 {
		t.Errorf("expected one store read, got %d", f.agents.gets)
	}
}

func TestGetProfile_AdministratorOverride(t *testing.T) {
	f := newFixture()
	f.agents = newAgentStore(domain.AgentProfile{ID: "admin-1", Email: "boss@agency.test", Tier: 1, TierName: "Bronze"})
	f.build()

	got, err := f.agentSvc.GetProfile(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.IsAdmin || got.Tier != domain.AdministratorTier || got.TierName != domain.AdministratorTierName {
		t.Errorf("expected administrator override, got %+v", got)
	}
}

func TestMe_SynthesisesAdminProfile(t *testing.T) {
	f := newFixture()

	got, err := f.agentSvc.Me(context.Background(), admin)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "admin-1" || !got.IsAdmin {
		t.Errorf("unexpected profile: %+v", got)
	}

	_, err = f.agentSvc.Me(context.Background(), agentA)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound for an agent without profile, got %v", err)
	}
}

func TestHierarchy(t *testing.T) {
	f := hierarchyFixture()

	got, err := f.agentSvc.Hierarchy(context.Background(), admin, "leader")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.DownlineCount != 2 {
		t.Errorf("expected 2 agents below leader, got %d", got.DownlineCount)
	}
	if len(got.Root.Downline) != 1 || got.Root.Downline[0].ID != "agent-a" {
		t.Fatalf("unexpected downline: %+v", got.Root.Downline)
	}
	if len(got.Root.Downline[0].Downline) != 1 || got.Root.Downline[0].Downline[0].ID != "junior" {
		t.Errorf("expected junior under agent-a, got %+v", got.Root.Downline[0].Downline)
	}
	if len(got.Upline) != 1 || got.Upline[0].ID != "director" {
		t.Errorf("expected director as upline, got %+v", got.Upline)
	}
}

func TestUplineChain_StopsOnCycle(t *testing.T) {
	f := newFixture()
	f.agents = newAgentStore(
		domain.AgentProfile{ID: "x", UplineID: ptr("y")},
		domain.AgentProfile{ID: "y", UplineID: ptr("x")},
	)
	f.build()

	x, _ := f.agents.GetAgentProfile(context.Background(), "x")
	chain, err := f.agentSvc.UplineChain(context.Background(), x)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chain) != 1 || chain[0].ID != "y" {
		t.Errorf("expected chain [y], got %+v", chain)
	}
}

func TestOverrides_OnlyHigherRanksEarn(t *testing.T) {
	f := hierarchyFixture()

	got, err := f.agentSvc.Overrides(context.Background(), agentA, "agent-a", 10000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Overrides) != 2 {
		t.Fatalf("expected leader and director to earn, got %+v", got.Overrides)
	}
	if got.Overrides[0].AgentID != "leader" || got.Overrides[0].Amount != 700 {
		t.Errorf("unexpected first override: %+v", got.Overrides[0])
	}
	if got.TotalOverride != 1200 {
		t.Errorf("expected total 1200, got %v", got.TotalOverride)
	}
}

func TestAgentReads_SelfUplineOrAdmin(t *testing.T) {
	f := hierarchyFixture()
	ctx := context.Background()
	leader := &domain.Principal{UserID: "leader", Role: domain.RoleAgent}
	junior := &domain.Principal{UserID: "junior", Role: domain.RoleAgent}

	var forbidden *domain.ErrForbidden
	if _, err := f.agentSvc.Profile(ctx, agentB, "agent-a"); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for an outsider's profile read, got %v", err)
	}
	if _, err := f.agentSvc.Hierarchy(ctx, agentB, "agent-a"); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for an outsider's hierarchy read, got %v", err)
	}
	if _, err := f.agentSvc.Overrides(ctx, agentB, "agent-a", 10000); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for an outsider's overrides read, got %v", err)
	}
	if _, err := f.agentSvc.Profile(ctx, junior, "agent-a"); !errors.As(err, &forbidden) {
		t.Errorf("expected a downline agent to be refused, got %v", err)
	}

	if _, err := f.agentSvc.Profile(ctx, leader, "junior"); err != nil {
		t.Errorf("expected an indirect upline to read the profile, got %v", err)
	}
	if _, err := f.agentSvc.Hierarchy(ctx, agentA, "agent-a"); err != nil {
		t.Errorf("expected self read, got %v", err)
	}
	if _, err := f.agentSvc.Overrides(ctx, admin, "junior", 5000); err != nil {
		t.Errorf("expected admin read, got %v", err)
	}
	if _, err := f.agentSvc.Profile(ctx, nil, "agent-a"); err == nil {
		t.Error("expected an anonymous read to be refused")
	}
}

func TestUpdateRank(t *testing.T) {
	f := hierarchyFixture()
	ctx := context.Background()

	if _, err := f.agentSvc.GetProfile(ctx, "agent-a"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := f.agentSvc.UpdateRank(ctx, agentA, "agent-a", "Team Leader"); err == nil {
		t.Fatal("expected agents to be refused")
	}
	if _, err := f.agentSvc.UpdateRank(ctx, admin, "agent-a", "Emperor"); err == nil {
		t.Fatal("expected unknown rank to be rejected")
	}

	if _, err := f.agentSvc.UpdateRank(ctx, admin, "agent-a", "Sales Leader"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, _ := f.agentSvc.GetProfile(ctx, "agent-a")
	if got.Rank != "Sales Leader" {
		t.Errorf("expected cache to be refreshed, got rank %q", got.Rank)
	}
}

func TestTiers_SortedByPercentage(t *testing.T) {
	f := newFixture()
	tiers := f.agentSvc.Tiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i-1].AgentPercentage > tiers[i].AgentPercentage {
			t.Fatalf("tiers out of order: %+v", tiers)
		}
	}
}

func TestDashboard(t *testing.T) {
	f := hierarchyFixture()
	future := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	past := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	f.installments.items = []domain.CommissionInstallment{
		{ID: "i1", AgentID: "agent-a", Amount: 3000, ScheduledDate: past, Status: domain.InstallmentStatusPaid},
		{ID: "i2", AgentID: "agent-a", Amount: 2000, ScheduledDate: future, Status: domain.InstallmentStatusPending},
		{ID: "i3", AgentID: "agent-a", Amount: 9999, ScheduledDate: future, Status: domain.InstallmentStatusCancelled},
	}
	f.notifications.items = []domain.Notification{{ID: "n1", UserID: "agent-a"}}

	got, err := f.agentSvc.Dashboard(context.Background(), agentA, "agent-a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.PaidCommission != 3000 || got.PendingCommission != 2000 {
		t.Errorf("unexpected totals: paid=%v pending=%v", got.PaidCommission, got.PendingCommission)
	}
	if len(got.UpcomingInstallments) != 1 || got.UpcomingInstallments[0].ID != "i2" {
		t.Errorf("unexpected upcoming: %+v", got.UpcomingInstallments)
	}
	if got.UnreadNotifications != 1 {
		t.Errorf("expected 1 unread, got %d", got.UnreadNotifications)
	}
	if got.NextRank != "Sales Leader" || got.SalesToNextRank != 4000000 {
		t.Errorf("unexpected next rank: %q %v", got.NextRank, got.SalesToNextRank)
	}

	if _, err := f.agentSvc.Dashboard(context.Background(), agentB, "agent-a"); err == nil {
		t.Error("expected another agent to be refused")
	}
}

func TestDashboard_UnreadCountFailureIsTolerated(t *testing.T) {
	f := hierarchyFixture()
	f.notifications.err = errStoreDown

	got, err := f.agentSvc.Dashboard(context.Background(), admin, "agent-a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.UnreadNotifications != 0 {
		t.Errorf("expected 0 unread, got %d", got.UnreadNotifications)
	}
}
