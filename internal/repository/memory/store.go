// Package memory is an in-process implementation of interfaces.Store used by
// tests and by STORAGE=memory demo runs. Data is lost on exit.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"
)

type Store struct {
	mu sync.RWMutex

	accounts      map[string]entities.Account
	users         map[string]entities.User
	members       map[string]entities.TeamMember
	widgets       map[string]entities.WidgetConfig // by account
	settings      map[string]entities.AccountSettings
	sources       map[string]entities.KnowledgeSource
	products      map[string]entities.Product
	conversations map[string]entities.Conversation
	messages      []entities.Message
	leads         []entities.Lead
	cart          []entities.CartItem
}

var _ interfaces.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:      make(map[string]entities.Account),
		users:         make(map[string]entities.User),
		members:       make(map[string]entities.TeamMember),
		widgets:       make(map[string]entities.WidgetConfig),
		settings:      make(map[string]entities.AccountSettings),
		sources:       make(map[string]entities.KnowledgeSource),
		products:      make(map[string]entities.Product),
		conversations: make(map[string]entities.Conversation),
	}
}

// Accounts and users

func (s *Store) CreateAccount(_ context.Context, acc *entities.Account, owner *entities.User, cfg *entities.WidgetConfig, st *entities.AccountSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.WidgetKey == acc.WidgetKey {
			return entities.ErrWidgetKeyTaken
		}
	}
	if s.emailTaken(owner.Email) {
		return fmt.Errorf("%w: email", entities.ErrConflict)
	}
	s.accounts[acc.ID] = *acc
	s.users[owner.ID] = *owner
	joined := owner.CreatedAt
	uid := owner.ID
	s.members[owner.ID] = entities.TeamMember{
		ID: owner.ID, AccountID: acc.ID, UserID: &uid, Email: owner.Email,
		Role: entities.RoleOwner, InvitedAt: owner.CreatedAt, JoinedAt: &joined,
	}
	s.widgets[acc.ID] = *cfg
	s.settings[acc.ID] = *st
	return nil
}

func (s *Store) emailTaken(email string) bool {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) GetAccount(_ context.Context, id string) (*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *Store) GetAccountByWidgetKey(_ context.Context, key string) (*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.WidgetKey == key {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) RenameAccount(_ context.Context, id, companyName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return entities.ErrNotFound
	}
	a.CompanyName = companyName
	s.accounts[id] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return entities.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.widgets, id)
	delete(s.settings, id)
	deleteWhere(s.users, func(u entities.User) bool { return u.AccountID == id })
	deleteWhere(s.members, func(m entities.TeamMember) bool { return m.AccountID == id })
	deleteWhere(s.sources, func(k entities.KnowledgeSource) bool { return k.AccountID == id })
	deleteWhere(s.products, func(p entities.Product) bool { return p.AccountID == id })
	convs := map[string]bool{}
	for cid, c := range s.conversations {
		if c.AccountID == id {
			convs[cid] = true
			delete(s.conversations, cid)
		}
	}
	s.messages = slices.DeleteFunc(s.messages, func(m entities.Message) bool { return convs[m.ConversationID] })
	s.leads = slices.DeleteFunc(s.leads, func(l entities.Lead) bool { return l.AccountID == id })
	s.cart = slices.DeleteFunc(s.cart, func(c entities.CartItem) bool { return c.AccountID == id })
	return nil
}

func deleteWhere[V any](m map[string]V, pred func(V) bool) {
	for k, v := range m {
		if pred(v) {
			delete(m, k)
		}
	}
}

func (s *Store) CreateUser(_ context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(u.Email) {
		return fmt.Errorf("%w: email", entities.ErrConflict)
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *Store) UpdateUserRole(_ context.Context, id, role string) error {
	return s.updateUser(id, func(u *entities.User) { u.Role = role })
}

func (s *Store) SetSuperAdmin(_ context.Context, id string, super bool) error {
	return s.updateUser(id, func(u *entities.User) { u.IsSuperAdmin = super })
}

func (s *Store) updateUser(id string, fn func(*entities.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	fn(&u)
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return entities.ErrNotFound
	}
	delete(s.users, id)
	deleteWhere(s.members, func(m entities.TeamMember) bool { return m.UserID != nil && *m.UserID == id })
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]entities.AdminUserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.AdminUserView, 0, len(s.users))
	for _, u := range s.users {
		a := s.accounts[u.AccountID]
		out = append(out, entities.AdminUserView{
			ID: u.ID, AccountID: u.AccountID, Email: u.Email, CompanyName: a.CompanyName,
			Role: u.Role, IsSuperAdmin: u.IsSuperAdmin, WidgetKey: a.WidgetKey, CreatedAt: u.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Team

func withStatus(m entities.TeamMember) entities.TeamMember {
	m.Status = entities.MemberInvited
	if m.JoinedAt != nil {
		m.Status = entities.MemberActive
	}
	return m
}

func (s *Store) ListMembers(_ context.Context, accountID string) ([]entities.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.TeamMember{}
	for _, m := range s.members {
		if m.AccountID == accountID {
			out = append(out, withStatus(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].Role == entities.RoleOwner, out[j].Role == entities.RoleOwner
		if oi != oj {
			return oi
		}
		return out[i].InvitedAt.Before(out[j].InvitedAt)
	})
	return out, nil
}

func (s *Store) GetMember(_ context.Context, accountID, id string) (*entities.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.members[id]; ok && m.AccountID == accountID {
		m = withStatus(m)
		return &m, nil
	}
	return nil, nil
}

func (s *Store) GetMemberByEmail(_ context.Context, accountID, email string) (*entities.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.AccountID == accountID && strings.EqualFold(m.Email, email) {
			m = withStatus(m)
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Store) GetPendingInvite(_ context.Context, email string) (*entities.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *entities.TeamMember
	for _, m := range s.members {
		m := m
		if m.JoinedAt == nil && strings.EqualFold(m.Email, email) {
			if found == nil || m.InvitedAt.Before(found.InvitedAt) {
				m = withStatus(m)
				found = &m
			}
		}
	}
	return found, nil
}

func (s *Store) CreateMember(_ context.Context, m *entities.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.members {
		if e.AccountID == m.AccountID && strings.EqualFold(e.Email, m.Email) {
			return fmt.Errorf("%w: member email", entities.ErrConflict)
		}
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) MarkJoined(_ context.Context, id, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return entities.ErrNotFound
	}
	m.UserID = &userID
	m.JoinedAt = &at
	s.members[id] = m
	return nil
}

func (s *Store) UpdateMemberRole(_ context.Context, accountID, id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok || m.AccountID != accountID {
		return entities.ErrNotFound
	}
	m.Role = role
	s.members[id] = m
	return nil
}

func (s *Store) DeleteMember(_ context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok || m.AccountID != accountID {
		return entities.ErrNotFound
	}
	delete(s.members, id)
	return nil
}

// Widget and settings

func (s *Store) GetWidgetConfig(_ context.Context, accountID string) (*entities.WidgetConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.widgets[accountID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *Store) UpdateWidgetConfig(_ context.Context, cfg *entities.WidgetConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.widgets[cfg.AccountID]
	if !ok {
		return entities.ErrNotFound
	}
	c := *cfg
	c.ID = old.ID
	s.widgets[cfg.AccountID] = c
	return nil
}

func (s *Store) GetSettings(_ context.Context, accountID string) (*entities.AccountSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.settings[accountID]; ok {
		return &st, nil
	}
	return nil, nil
}

func (s *Store) UpdateSettings(_ context.Context, st *entities.AccountSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.AccountID] = *st
	return nil
}

// Knowledge

func (s *Store) ListSources(_ context.Context, accountID string, limit int) ([]entities.KnowledgeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.KnowledgeSource{}
	for _, k := range s.sources {
		if k.AccountID == accountID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) GetSource(_ context.Context, accountID, id string) (*entities.KnowledgeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k, ok := s.sources[id]; ok && k.AccountID == accountID {
		return &k, nil
	}
	return nil, nil
}

func (s *Store) CreateSource(_ context.Context, k *entities.KnowledgeSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[k.ID] = *k
	return nil
}

func (s *Store) DeleteSource(_ context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.sources[id]
	if !ok || k.AccountID != accountID {
		return entities.ErrNotFound
	}
	delete(s.sources, id)
	for pid, p := range s.products {
		if p.SourceID != nil && *p.SourceID == id {
			p.SourceID = nil
			s.products[pid] = p
		}
	}
	return nil
}

func (s *Store) ActiveContents(_ context.Context, accountID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []entities.KnowledgeSource
	for _, k := range s.sources {
		if k.AccountID == accountID && k.Status == entities.SourceActive && k.Content != "" {
			active = append(active, k)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	active = truncate(active, limit)
	out := make([]string, len(active))
	for i, k := range active {
		out[i] = k.Content
	}
	return out, nil
}

// Products

func (s *Store) ListProducts(_ context.Context, accountID string, limit int) ([]entities.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.Product{}
	for _, p := range s.products {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) GetProduct(_ context.Context, accountID, id string) (*entities.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[id]; ok && p.AccountID == accountID {
		return &p, nil
	}
	return nil, nil
}

func (s *Store) CreateProduct(_ context.Context, p *entities.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p *entities.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.products[p.ID]
	if !ok || old.AccountID != p.AccountID {
		return entities.ErrNotFound
	}
	updated := *p
	updated.CreatedAt = old.CreatedAt
	updated.SourceID = old.SourceID
	s.products[p.ID] = updated
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.AccountID != accountID {
		return entities.ErrNotFound
	}
	delete(s.products, id)
	s.cart = slices.DeleteFunc(s.cart, func(c entities.CartItem) bool { return c.ProductID == id })
	return nil
}

func (s *Store) ReplaceSourceProducts(_ context.Context, accountID, sourceID string, products []entities.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleteWhere(s.products, func(p entities.Product) bool {
		return p.AccountID == accountID && p.SourceID != nil && *p.SourceID == sourceID
	})
	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}

func (s *Store) SearchProducts(_ context.Context, accountID string, terms []string, limit int) ([]entities.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.Product{}
	for _, p := range s.products {
		if p.AccountID != accountID || !p.InStock {
			continue
		}
		name, cat := strings.ToLower(p.Name), strings.ToLower(p.Category)
		for _, t := range terms {
			t = strings.ToLower(t)
			if strings.Contains(name, t) || strings.Contains(cat, t) {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return truncate(out, limit), nil
}

// Conversations

func (s *Store) GetConversationBySession(_ context.Context, accountID, sessionID string) (*entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.AccountID == accountID && c.SessionID == sessionID {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) GetConversation(_ context.Context, accountID, id string) (*entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.conversations[id]; ok && c.AccountID == accountID {
		return &c, nil
	}
	return nil, nil
}

func (s *Store) CreateConversation(_ context.Context, c *entities.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.conversations {
		if e.AccountID == c.AccountID && e.SessionID == c.SessionID {
			return fmt.Errorf("%w: session", entities.ErrConflict)
		}
	}
	s.conversations[c.ID] = *c
	return nil
}

func (s *Store) ListConversations(_ context.Context, accountID string, limit int) ([]entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.Conversation{}
	for _, c := range s.conversations {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return truncate(out, limit), nil
}

func (s *Store) AppendMessage(_ context.Context, m *entities.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *Store) TouchConversation(_ context.Context, id string, added int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return entities.ErrNotFound
	}
	c.MessagesCount += added
	c.LastMessageAt = at
	s.conversations[id] = c
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	return s.filterMessages(limit, func(m entities.Message) bool { return m.ConversationID == conversationID }), nil
}

func (s *Store) ListRecentMessages(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	out := s.filterMessages(0, func(m entities.Message) bool { return m.ConversationID == conversationID })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) ListSessionMessages(_ context.Context, accountID, sessionID string, limit int) ([]entities.Message, error) {
	s.mu.RLock()
	convs := map[string]bool{}
	for id, c := range s.conversations {
		if accountID == "" || c.AccountID == accountID {
			convs[id] = true
		}
	}
	s.mu.RUnlock()
	return s.filterMessages(limit, func(m entities.Message) bool {
		return m.SessionID == sessionID && convs[m.ConversationID]
	}), nil
}

func (s *Store) filterMessages(limit int, keep func(entities.Message) bool) []entities.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.Message{}
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return truncate(out, limit)
}

// Leads and cart

func (s *Store) CreateLead(_ context.Context, l *entities.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, *l)
	return nil
}

func (s *Store) ListLeads(_ context.Context, accountID string, limit int) ([]entities.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.Lead{}
	for _, l := range s.leads {
		if l.AccountID == accountID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) LeadExists(_ context.Context, accountID, sessionID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.AccountID == accountID && l.SessionID == sessionID && l.Email != nil && strings.EqualFold(*l.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AddCartItem(_ context.Context, item *entities.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cart {
		if c.AccountID == item.AccountID && c.SessionID == item.SessionID && c.ProductID == item.ProductID {
			s.cart[i].Quantity += item.Quantity
			*item = s.cart[i]
			return nil
		}
	}
	s.cart = append(s.cart, *item)
	return nil
}

func (s *Store) ListCartItems(_ context.Context, accountID, sessionID string) ([]entities.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.CartItem{}
	for _, c := range s.cart {
		if c.AccountID == accountID && c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Analytics

func (s *Store) AccountOverview(_ context.Context, accountID string, todayStart time.Time) (entities.AnalyticsOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var o entities.AnalyticsOverview
	convs := map[string]bool{}
	for id, c := range s.conversations {
		if c.AccountID != accountID {
			continue
		}
		convs[id] = true
		o.TotalConversations++
		if !c.StartedAt.Before(todayStart) {
			o.ConversationsToday++
		}
	}
	for _, m := range s.messages {
		if convs[m.ConversationID] {
			o.TotalMessages++
		}
	}
	for _, l := range s.leads {
		if l.AccountID == accountID {
			o.TotalLeads++
		}
	}
	if o.TotalConversations > 0 {
		o.AvgMessagesPerConversation = math.Round(float64(o.TotalMessages)/float64(o.TotalConversations)*10) / 10
	}
	return o, nil
}

func (s *Store) CountConversationsBetween(_ context.Context, accountID string, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.conversations {
		if c.AccountID == accountID && !c.StartedAt.Before(from) && c.StartedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountRows(_ context.Context, table string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	switch table {
	case "accounts":
		n = len(s.accounts)
	case "users":
		n = len(s.users)
	case "team_members":
		n = len(s.members)
	case "widget_configs":
		n = len(s.widgets)
	case "account_settings":
		n = len(s.settings)
	case "knowledge_sources":
		n = len(s.sources)
	case "products":
		n = len(s.products)
	case "conversations":
		n = len(s.conversations)
	case "messages":
		n = len(s.messages)
	case "leads":
		n = len(s.leads)
	case "cart_items":
		n = len(s.cart)
	default:
		return 0, fmt.Errorf("%w: unknown table %q", entities.ErrInvalidInput, table)
	}
	return int64(n), nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
