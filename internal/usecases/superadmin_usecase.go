package usecases

import (
	"context"
	"errors"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type superAdminStore interface {
	interfaces.AccountStore
	interfaces.UserStore
	interfaces.AnalyticsStore
}

// SuperAdminUsecase is the cross-tenant platform panel.
type SuperAdminUsecase struct {
	store superAdminStore
	log   zerolog.Logger
}

func NewSuperAdminUsecase(store superAdminStore, log zerolog.Logger) *SuperAdminUsecase {
	return &SuperAdminUsecase{store: store, log: log}
}

func (uc *SuperAdminUsecase) Stats(ctx context.Context, actor Actor) (*entities.PlatformStats, error) {
	if !actor.SuperAdmin {
		return nil, entities.Forbidden("Accesso riservato al super admin")
	}
	var st entities.PlatformStats
	targets := map[string]*int64{
		"users":             &st.TotalUsers,
		"conversations":     &st.TotalConversations,
		"products":          &st.TotalProducts,
		"leads":             &st.TotalLeads,
		"knowledge_sources": &st.TotalKnowledgeSources,
		"messages":          &st.TotalMessages,
	}
	g, gctx := errgroup.WithContext(ctx)
	for table, dst := range targets {
		table, dst := table, dst
		g.Go(func() error {
			n, err := uc.store.CountRows(gctx, table)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (uc *SuperAdminUsecase) Users(ctx context.Context, actor Actor) ([]entities.AdminUserView, error) {
	if !actor.SuperAdmin {
		return nil, entities.Forbidden("Accesso riservato al super admin")
	}
	return uc.store.ListUsers(ctx)
}

// Collections maps every table to its row count.
func (uc *SuperAdminUsecase) Collections(ctx context.Context, actor Actor) (map[string]int64, error) {
	if !actor.SuperAdmin {
		return nil, entities.Forbidden("Accesso riservato al super admin")
	}
	counts := make([]int64, len(interfaces.Tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, table := range interfaces.Tables {
		i, table := i, table
		g.Go(func() error {
			n, err := uc.store.CountRows(gctx, table)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for i, table := range interfaces.Tables {
		out[table] = counts[i]
	}
	return out, nil
}

// DeleteUser removes a user. Removing an owner removes the whole account.
func (uc *SuperAdminUsecase) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	if !actor.SuperAdmin {
		return entities.Forbidden("Accesso riservato al super admin")
	}
	if userID == actor.UserID {
		return entities.Invalid("Non puoi eliminare te stesso")
	}
	u, err := uc.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return entities.NotFound("Utente non trovato")
	}
	if u.IsSuperAdmin {
		return entities.Forbidden("Non puoi eliminare un super admin")
	}

	if u.Role == entities.RoleOwner {
		if err := uc.guardAccount(ctx, actor, u.AccountID); err != nil {
			return err
		}
		err = uc.store.DeleteAccount(ctx, u.AccountID)
	} else {
		err = uc.store.DeleteUser(ctx, u.ID)
	}
	if errors.Is(err, entities.ErrNotFound) {
		return entities.NotFound("Utente non trovato")
	}
	if err != nil {
		return err
	}
	uc.log.Warn().Str("by", actor.UserID).Str("user_id", u.ID).Str("role", u.Role).Msg("user deleted by super admin")
	return nil
}

// guardAccount refuses an account cascade that would remove the caller or
// any super admin.
func (uc *SuperAdminUsecase) guardAccount(ctx context.Context, actor Actor, accountID string) error {
	users, err := uc.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, v := range users {
		if v.AccountID != accountID {
			continue
		}
		if v.ID == actor.UserID || v.IsSuperAdmin {
			return entities.Forbidden("L'account contiene un super admin e non può essere eliminato")
		}
	}
	return nil
}
