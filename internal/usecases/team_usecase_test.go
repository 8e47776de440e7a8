package usecases

import (
	"context"
	"testing"

	"salesgenius/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinTeam invites email with role into the owner's account and registers it.
func (e *testEnv) joinTeam(t *testing.T, owner Actor, email, role string) (Actor, string) {
	t.Helper()
	m, err := e.team.Invite(context.Background(), owner, email, role)
	require.NoError(t, err)
	return e.actor(t, e.register(t, email, "")), m.ID
}

func TestInvite_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.actor(t, e.register(t, "owner@shop.it", "Shop"))
	e.register(t, "taken@other.it", "Other")

	_, err := e.team.Invite(ctx, owner, "bad", entities.RoleMember)
	requireKind(t, err, entities.ErrInvalidInput, "Email non valida")

	_, err = e.team.Invite(ctx, owner, "x@shop.it", entities.RoleOwner)
	requireKind(t, err, entities.ErrInvalidInput, "Ruolo non valido")

	_, err = e.team.Invite(ctx, owner, "Taken@Other.it", entities.RoleMember)
	requireKind(t, err, entities.ErrInvalidInput, "Email già registrata con un altro account")

	m, err := e.team.Invite(ctx, owner, " New@Shop.it ", entities.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "new@shop.it", m.Email)
	assert.Equal(t, entities.MemberInvited, m.Status)
	assert.Nil(t, m.UserID)

	_, err = e.team.Invite(ctx, owner, "new@shop.it", entities.RoleMember)
	requireKind(t, err, entities.ErrInvalidInput, "Questo utente fa già parte del team")

	_, err = e.team.Invite(ctx, owner, "owner@shop.it", entities.RoleMember)
	requireKind(t, err, entities.ErrInvalidInput, "Questo utente fa già parte del team")
}

func TestTeam_MemberCannotManage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.actor(t, e.register(t, "owner@shop.it", "Shop"))
	member, memberID := e.joinTeam(t, owner, "m@shop.it", entities.RoleMember)
	assert.Equal(t, entities.RoleMember, member.Role)

	_, err := e.team.Invite(ctx, member, "x@shop.it", entities.RoleMember)
	requireKind(t, err, entities.ErrForbidden, "Permessi insufficienti")
	_, err = e.team.ChangeRole(ctx, member, memberID, entities.RoleAdmin)
	requireKind(t, err, entities.ErrForbidden, "Permessi insufficienti")
	err = e.team.Remove(ctx, member, memberID)
	requireKind(t, err, entities.ErrForbidden, "Permessi insufficienti")

	// members still see the team
	members, err := e.team.Members(ctx, member.AccountID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestChangeRole(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ownerRes := e.register(t, "owner@shop.it", "Shop")
	owner := e.actor(t, ownerRes)
	admin, adminID := e.joinTeam(t, owner, "a@shop.it", entities.RoleAdmin)
	_, otherAdminID := e.joinTeam(t, owner, "b@shop.it", entities.RoleAdmin)
	member, memberID := e.joinTeam(t, owner, "m@shop.it", entities.RoleMember)

	members, err := e.team.Members(ctx, owner.AccountID)
	require.NoError(t, err)
	ownerMemberID := members[0].ID

	_, err = e.team.ChangeRole(ctx, owner, ownerMemberID, entities.RoleMember)
	requireKind(t, err, entities.ErrForbidden, "Il ruolo del proprietario non può essere modificato")

	_, err = e.team.ChangeRole(ctx, admin, otherAdminID, entities.RoleMember)
	requireKind(t, err, entities.ErrForbidden, "Solo il proprietario può modificare un amministratore")

	_, err = e.team.ChangeRole(ctx, owner, memberID, "superuser")
	requireKind(t, err, entities.ErrInvalidInput, "Ruolo non valido")

	_, err = e.team.ChangeRole(ctx, owner, "missing", entities.RoleAdmin)
	requireKind(t, err, entities.ErrNotFound, "Membro non trovato")

	m, err := e.team.ChangeRole(ctx, admin, memberID, entities.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, m.Role)

	// the user record follows the member role
	res, err := e.auth.Login(ctx, "m@shop.it", "password1")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, res.User.Role)
	assert.Equal(t, member.UserID, res.User.ID)

	m, err = e.team.ChangeRole(ctx, owner, adminID, entities.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleMember, m.Role)
}

func TestRemoveMember(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.actor(t, e.register(t, "owner@shop.it", "Shop"))
	admin, adminID := e.joinTeam(t, owner, "a@shop.it", entities.RoleAdmin)
	_, memberID := e.joinTeam(t, owner, "m@shop.it", entities.RoleMember)
	pending, err := e.team.Invite(ctx, owner, "p@shop.it", entities.RoleMember)
	require.NoError(t, err)

	members, err := e.team.Members(ctx, owner.AccountID)
	require.NoError(t, err)
	require.Len(t, members, 4)

	err = e.team.Remove(ctx, admin, members[0].ID)
	requireKind(t, err, entities.ErrForbidden, "Il proprietario non può essere rimosso")

	err = e.team.Remove(ctx, admin, adminID)
	requireKind(t, err, entities.ErrInvalidInput, "Non puoi rimuovere te stesso")

	require.NoError(t, e.team.Remove(ctx, admin, memberID))
	require.NoError(t, e.team.Remove(ctx, owner, pending.ID))

	// the removed user can no longer log in
	_, err = e.auth.Login(ctx, "m@shop.it", "password1")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	members, err = e.team.Members(ctx, owner.AccountID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, entities.RoleOwner, members[0].Role)
	assert.Equal(t, "a@shop.it", members[1].Email)

	err = e.team.Remove(ctx, owner, memberID)
	requireKind(t, err, entities.ErrNotFound, "Membro non trovato")
}

func TestTeam_TenantIsolation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	one := e.actor(t, e.register(t, "one@shop.it", "One"))
	two := e.actor(t, e.register(t, "two@shop.it", "Two"))
	_, memberID := e.joinTeam(t, one, "m@one.it", entities.RoleMember)

	err := e.team.Remove(ctx, two, memberID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	_, err = e.team.ChangeRole(ctx, two, memberID, entities.RoleAdmin)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
