package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/config"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Principals ---

var (
	admin  = &domain.Principal{UserID: "admin-1", Email: "boss@agency.test", Role: domain.RoleAdmin}
	agentA = &domain.Principal{UserID: "agent-a", Email: "a@agency.test", Role: domain.RoleAgent}
	agentB = &domain.Principal{UserID: "agent-b", Email: "b@agency.test", Role: domain.RoleAgent}
)

func testTable() *config.CommissionTable {
	return &config.CommissionTable{
		Tiers: []domain.CommissionTier{
			{Name: "Bronze", Rank: "Associate", AgentPercentage: 70},
			{Name: "Gold", Rank: "Team Leader", AgentPercentage: 80},
		},
		Ranks: []domain.AgentRank{
			{Name: "Advisor", Level: 1, OverridePercentage: 0, MinSalesValue: 0},
			{Name: "Sales Leader", Level: 2, OverridePercentage: 7, MinSalesValue: 5000000},
			{Name: "Team Leader", Level: 3, OverridePercentage: 5, MinSalesValue: 15000000},
		},
	}
}

var errStoreDown = errors.New("store unavailable")

// --- Notifications ---

type memNotificationStore struct {
	mu    sync.Mutex
	items []domain.Notification
	err   error
}

func (m *memNotificationStore) CreateNotification(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := *n
	c.ID = fmt.Sprintf("n-%d", len(m.items)+1)
	m.items = append(m.items, c)
	return &c, nil
}

func (m *memNotificationStore) ListNotifications(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotificationStore) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memNotificationStore) GetNotification(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			c := n
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "notification", ID: id}
}

func (m *memNotificationStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Read = true
		}
	}
	return nil
}

func (m *memNotificationStore) MarkAllNotificationsRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].UserID == userID {
			m.items[i].Read = true
		}
	}
	return nil
}

func (m *memNotificationStore) byType(t string) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// --- Transactions ---

type memTransactionStore struct {
	mu    sync.Mutex
	items map[string]*domain.PropertyTransaction
	seq   int

	markErr error // returned once by MarkInstallmentsGenerated
}

func newTransactionStore(txs ...domain.PropertyTransaction) *memTransactionStore {
	m := &memTransactionStore{items: map[string]*domain.PropertyTransaction{}}
	for i := range txs {
		tx := txs[i]
		m.items[tx.ID] = &tx
	}
	return m
}

func (m *memTransactionStore) CreateTransaction(_ context.Context, tx *domain.PropertyTransaction) (*domain.PropertyTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c := *tx
	c.ID = fmt.Sprintf("tx-%d", m.seq)
	m.items[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memTransactionStore) GetTransaction(_ context.Context, id string) (*domain.PropertyTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.items[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	c := *tx
	return &c, nil
}

func (m *memTransactionStore) ListTransactionsByAgent(_ context.Context, agentID string, limit int) ([]domain.PropertyTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PropertyTransaction
	for _, tx := range m.items {
		if tx.AgentID == agentID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate > out[j].TransactionDate })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTransactionStore) MarkInstallmentsGenerated(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.markErr; err != nil {
		m.markErr = nil
		return err
	}
	if tx, ok := m.items[id]; ok {
		tx.InstallmentsGenerated = true
	}
	return nil
}

// --- Approvals & config ---

type memApprovalStore struct {
	mu       sync.Mutex
	items    map[string]*domain.CommissionApproval
	history  []domain.ApprovalHistory
	comments []domain.ApprovalComment
	err      error
}

func newApprovalStore(approvals ...domain.CommissionApproval) *memApprovalStore {
	m := &memApprovalStore{items: map[string]*domain.CommissionApproval{}}
	for i := range approvals {
		a := approvals[i]
		m.items[a.ID] = &a
	}
	return m
}

func (m *memApprovalStore) CreateApproval(_ context.Context, a *domain.CommissionApproval) (*domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := *a
	c.ID = fmt.Sprintf("ap-%d", len(m.items)+1)
	m.items[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memApprovalStore) GetApproval(_ context.Context, id string) (*domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "approval", ID: id}
	}
	c := *a
	return &c, nil
}

func (m *memApprovalStore) GetApprovalByTransaction(_ context.Context, txID string) (*domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.TransactionID == txID {
			c := *a
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "approval", ID: txID}
}

func (m *memApprovalStore) ListApprovals(_ context.Context, status domain.ApprovalStatus, _, _ int) ([]domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommissionApproval
	for _, a := range m.items {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memApprovalStore) CountApprovals(_ context.Context, status domain.ApprovalStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.items {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memApprovalStore) UpdateApprovalStatus(_ context.Context, id string, status domain.ApprovalStatus, reviewerID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "approval", ID: id}
	}
	a.Status = status
	a.ReviewerID = reviewerID
	a.Notes = notes
	return nil
}

func (m *memApprovalStore) InsertApprovalHistory(_ context.Context, h *domain.ApprovalHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *h)
	return nil
}

func (m *memApprovalStore) ListApprovalHistory(_ context.Context, id string) ([]domain.ApprovalHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ApprovalHistory
	for _, h := range m.history {
		if h.ApprovalID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memApprovalStore) CreateApprovalComment(_ context.Context, c *domain.ApprovalComment) (*domain.ApprovalComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc := *c
	cc.ID = fmt.Sprintf("c-%d", len(m.comments)+1)
	m.comments = append(m.comments, cc)
	return &cc, nil
}

func (m *memApprovalStore) ListApprovalComments(_ context.Context, id string) ([]domain.ApprovalComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ApprovalComment
	for _, c := range m.comments {
		if c.ApprovalID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memApprovalStore) GetApprovalComment(_ context.Context, id string) (*domain.ApprovalComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.comments {
		if c.ID == id {
			cc := c
			return &cc, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "comment", ID: id}
}

func (m *memApprovalStore) DeleteApprovalComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.comments {
		if c.ID == id {
			m.comments = append(m.comments[:i], m.comments[i+1:]...)
			return nil
		}
	}
	return nil
}

type memConfigStore struct {
	values map[string]string
	err    error
	reads  int
}

func (m *memConfigStore) GetSystemConfig(_ context.Context, key string) (string, error) {
	m.reads++
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", &domain.ErrNotFound{Resource: "system configuration", ID: key}
	}
	return v, nil
}

func (m *memConfigStore) SetSystemConfig(_ context.Context, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

// --- Installments, schedules, projections ---

type memInstallmentStore struct {
	mu          sync.Mutex
	items       []domain.CommissionInstallment
	projections []domain.ForecastProjection
	deletedFor  []string
}

func (m *memInstallmentStore) InsertInstallments(_ context.Context, rows []domain.CommissionInstallment) ([]domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CommissionInstallment, len(rows))
	for i, r := range rows {
		r.ID = fmt.Sprintf("inst-%d", len(m.items)+1)
		m.items = append(m.items, r)
		out[i] = r
	}
	return out, nil
}

func (m *memInstallmentStore) GetInstallment(_ context.Context, id string) (*domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			c := it
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "installment", ID: id}
}

func (m *memInstallmentStore) UpdateInstallment(_ context.Context, id string, updates map[string]any) (*domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		if s, ok := updates["status"].(string); ok {
			m.items[i].Status = s
		}
		if by, ok := updates["processed_by"].(string); ok {
			m.items[i].ProcessedBy = by
		}
		if raw, ok := updates["payment_date"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				m.items[i].PaymentDate = &ts
			}
		}
		c := m.items[i]
		return &c, nil
	}
	return nil, &domain.ErrNotFound{Resource: "installment", ID: id}
}

func (m *memInstallmentStore) ListInstallmentsByTransaction(_ context.Context, txID string) ([]domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommissionInstallment
	for _, it := range m.items {
		if it.TransactionID == txID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memInstallmentStore) ListInstallmentsByAgent(_ context.Context, agentID string) ([]domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommissionInstallment
	for _, it := range m.items {
		if it.AgentID == agentID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate < out[j].ScheduledDate })
	return out, nil
}

func (m *memInstallmentStore) ListInstallmentsDue(_ context.Context, from, to time.Time, status string) ([]domain.CommissionInstallment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")
	var out []domain.CommissionInstallment
	for _, it := range m.items {
		if it.Status == status && it.ScheduledDate >= lo && it.ScheduledDate <= hi {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memInstallmentStore) DeleteProjections(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedFor = append(m.deletedFor, agentID)
	kept := m.projections[:0]
	for _, p := range m.projections {
		if p.AgentID != agentID {
			kept = append(kept, p)
		}
	}
	m.projections = kept
	return nil
}

func (m *memInstallmentStore) InsertProjections(_ context.Context, rows []domain.ForecastProjection) ([]domain.ForecastProjection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projections = append(m.projections, rows...)
	return rows, nil
}

type memScheduleStore struct {
	items map[string]*domain.PaymentSchedule
	seq   int
}

func newScheduleStore(schedules ...domain.PaymentSchedule) *memScheduleStore {
	m := &memScheduleStore{items: map[string]*domain.PaymentSchedule{}}
	for i := range schedules {
		s := schedules[i]
		m.items[s.ID] = &s
	}
	return m
}

func (m *memScheduleStore) ListPaymentSchedules(_ context.Context) ([]domain.PaymentSchedule, error) {
	var out []domain.PaymentSchedule
	for _, s := range m.items {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memScheduleStore) GetPaymentSchedule(_ context.Context, id string) (*domain.PaymentSchedule, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment schedule", ID: id}
	}
	c := *s
	return &c, nil
}

func (m *memScheduleStore) GetDefaultPaymentSchedule(_ context.Context) (*domain.PaymentSchedule, error) {
	for _, s := range m.items {
		if s.IsDefault {
			c := *s
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "payment schedule", ID: "default"}
}

func (m *memScheduleStore) CreatePaymentSchedule(_ context.Context, s *domain.PaymentSchedule) (*domain.PaymentSchedule, error) {
	m.seq++
	c := *s
	c.ID = fmt.Sprintf("sched-%d", m.seq)
	m.items[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memScheduleStore) DeletePaymentSchedule(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memScheduleStore) SetDefaultPaymentSchedule(_ context.Context, id string) error {
	for _, s := range m.items {
		s.IsDefault = s.ID == id
	}
	return nil
}

func halvesSchedule() domain.PaymentSchedule {
	return domain.PaymentSchedule{
		ID:        "sched-default",
		Name:      "Two halves",
		IsDefault: true,
		Installments: []domain.ScheduleInstallment{
			{InstallmentNumber: 1, Percentage: 50, DaysAfterTransaction: 30},
			{InstallmentNumber: 2, Percentage: 50, DaysAfterTransaction: 60},
		},
	}
}

// --- Agents ---

type memAgentStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.AgentProfile
	gets     int

	createErr error // returned once by CreateAgentProfile
}

func newAgentStore(profiles ...domain.AgentProfile) *memAgentStore {
	m := &memAgentStore{profiles: map[string]*domain.AgentProfile{}}
	for i := range profiles {
		p := profiles[i]
		m.profiles[p.ID] = &p
	}
	return m
}

func (m *memAgentStore) GetAgentProfile(_ context.Context, id string) (*domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "agent profile", ID: id}
	}
	c := *p
	return &c, nil
}

func (m *memAgentStore) ListDownline(_ context.Context, uplineID string) ([]domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AgentProfile
	for _, p := range m.profiles {
		if p.UplineID != nil && *p.UplineID == uplineID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAgentStore) CreateAgentProfile(_ context.Context, p *domain.AgentProfile) (*domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr; err != nil {
		m.createErr = nil
		return nil, err
	}
	if _, ok := m.profiles[p.ID]; ok {
		return nil, &domain.ErrConflict{Message: "agent profile already exists"}
	}
	c := *p
	m.profiles[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memAgentStore) UpdateAgentProfile(_ context.Context, id string, updates map[string]any) (*domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "agent profile", ID: id}
	}
	if r, ok := updates["rank"].(string); ok {
		p.Rank = r
	}
	c := *p
	return &c, nil
}

func ptr[T any](v T) *T { return &v }

// --- Builders ---

type fixture struct {
	txs           *memTransactionStore
	approvals     *memApprovalStore
	config        *memConfigStore
	notifications *memNotificationStore
	installments  *memInstallmentStore
	schedules     *memScheduleStore
	agents        *memAgentStore

	notifier    *service.NotificationService
	approvalSvc *service.ApprovalService
	agentSvc    *service.AgentService
	txSvc       *service.TransactionService
	instSvc     *service.InstallmentService
}

func newFixture() *fixture {
	f := &fixture{
		txs:           newTransactionStore(),
		approvals:     newApprovalStore(),
		config:        &memConfigStore{},
		notifications: &memNotificationStore{},
		installments:  &memInstallmentStore{},
		schedules:     newScheduleStore(halvesSchedule()),
		agents:        newAgentStore(),
	}
	f.build()
	return f
}

func (f *fixture) build() {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	table := testTable()

	f.notifier = service.NewNotificationService(f.notifications, metrics, logger)
	f.approvalSvc = service.NewApprovalService(f.approvals, f.config, cache.New[float64](time.Minute), f.notifier, 10000, metrics, logger)
	f.agentSvc = service.NewAgentService(f.agents, f.txs, f.installments, f.notifications,
		cache.New[domain.AgentProfile](time.Minute), table, []string{"Boss@Agency.test"}, metrics, logger)
	f.txSvc = service.NewTransactionService(f.txs, f.agentSvc, f.approvalSvc, f.notifier, table, 70, metrics, logger)
	f.instSvc = service.NewInstallmentService(f.txs, f.installments, f.schedules, f.installments, f.notifier, 70, metrics, logger)
}
