package usecases

import (
	"context"
	"errors"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

// Actor is the authenticated caller of a dashboard operation.
type Actor struct {
	UserID     string
	AccountID  string
	Role       string
	SuperAdmin bool
}

func (a Actor) CanManage() bool {
	return a.Role == entities.RoleOwner || a.Role == entities.RoleAdmin
}

type teamStore interface {
	interfaces.TeamStore
	interfaces.UserStore
}

type TeamUsecase struct {
	store teamStore
	log   zerolog.Logger
}

func NewTeamUsecase(store teamStore, log zerolog.Logger) *TeamUsecase {
	return &TeamUsecase{store: store, log: log}
}

func (uc *TeamUsecase) Members(ctx context.Context, accountID string) ([]entities.TeamMember, error) {
	return uc.store.ListMembers(ctx, accountID)
}

// Invite adds a pending member. The invitee joins by registering with the
// same email.
func (uc *TeamUsecase) Invite(ctx context.Context, actor Actor, email, role string) (*entities.TeamMember, error) {
	if !actor.CanManage() {
		return nil, entities.Forbidden("Permessi insufficienti")
	}
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return nil, entities.Invalid("Email non valida")
	}
	if role != entities.RoleAdmin && role != entities.RoleMember {
		return nil, entities.Invalid("Ruolo non valido")
	}
	existing, err := uc.store.GetMemberByEmail(ctx, actor.AccountID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, entities.Invalid("Questo utente fa già parte del team")
	}
	u, err := uc.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return nil, entities.Invalid("Email già registrata con un altro account")
	}

	m := &entities.TeamMember{
		ID:        newID(),
		AccountID: actor.AccountID,
		Email:     email,
		Role:      role,
		Status:    entities.MemberInvited,
		InvitedAt: now(),
	}
	if err := uc.store.CreateMember(ctx, m); err != nil {
		if errors.Is(err, entities.ErrConflict) {
			return nil, entities.Invalid("Questo utente fa già parte del team")
		}
		return nil, err
	}
	uc.log.Info().Str("account_id", actor.AccountID).Str("role", role).Msg("team member invited")
	return m, nil
}

func (uc *TeamUsecase) ChangeRole(ctx context.Context, actor Actor, memberID, role string) (*entities.TeamMember, error) {
	if !actor.CanManage() {
		return nil, entities.Forbidden("Permessi insufficienti")
	}
	if role != entities.RoleAdmin && role != entities.RoleMember {
		return nil, entities.Invalid("Ruolo non valido")
	}
	m, err := uc.member(ctx, actor.AccountID, memberID)
	if err != nil {
		return nil, err
	}
	if m.Role == entities.RoleOwner {
		return nil, entities.Forbidden("Il ruolo del proprietario non può essere modificato")
	}
	if actor.Role == entities.RoleAdmin && m.Role == entities.RoleAdmin {
		return nil, entities.Forbidden("Solo il proprietario può modificare un amministratore")
	}

	if err := uc.store.UpdateMemberRole(ctx, actor.AccountID, m.ID, role); err != nil {
		return nil, err
	}
	if m.UserID != nil {
		if err := uc.store.UpdateUserRole(ctx, *m.UserID, role); err != nil && !errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
	}
	m.Role = role
	return m, nil
}

// Remove deletes a member and the user who joined through it.
func (uc *TeamUsecase) Remove(ctx context.Context, actor Actor, memberID string) error {
	if !actor.CanManage() {
		return entities.Forbidden("Permessi insufficienti")
	}
	m, err := uc.member(ctx, actor.AccountID, memberID)
	if err != nil {
		return err
	}
	if m.Role == entities.RoleOwner {
		return entities.Forbidden("Il proprietario non può essere rimosso")
	}
	if m.UserID != nil && *m.UserID == actor.UserID {
		return entities.Invalid("Non puoi rimuovere te stesso")
	}

	if err := uc.store.DeleteMember(ctx, actor.AccountID, m.ID); err != nil {
		return err
	}
	if m.UserID != nil {
		if err := uc.store.DeleteUser(ctx, *m.UserID); err != nil && !errors.Is(err, entities.ErrNotFound) {
			return err
		}
	}
	uc.log.Info().Str("account_id", actor.AccountID).Str("member_id", m.ID).Msg("team member removed")
	return nil
}

func (uc *TeamUsecase) member(ctx context.Context, accountID, id string) (*entities.TeamMember, error) {
	m, err := uc.store.GetMember(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, entities.NotFound("Membro non trovato")
	}
	return m, nil
}
