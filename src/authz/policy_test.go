package authz

import (
	"testing"

	"signalengine/src/model"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDecide(t *testing.T) {
	policy := NewPolicy()

	cases := []struct {
		name    string
		req     Request
		allowed bool
	}{
		{
			name:    "author may move stop on own trade",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleMember, Action: model.ActionMoveStopLoss, IsAuthor: true},
			allowed: true,
		},
		{
			name:    "ordinary member may only note",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleMember, Action: model.ActionMoveStopLoss},
			allowed: false,
		},
		{
			name:    "ordinary member may note",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleMember, Action: model.ActionAddNote},
			allowed: true,
		},
		{
			name:    "clan leader may change status",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleLeader, Action: model.ActionStatusChange},
			allowed: true,
		},
		{
			name:    "co-leader may close",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleCoLeader, Action: model.ActionClose},
			allowed: true,
		},
		{
			name:    "admin may do anything on plain trades",
			req:     Request{ActorRole: model.RoleAdmin, Action: model.ActionStatusChange},
			allowed: true,
		},
		{
			name:    "terminal-linked status change is hidden even from admins",
			req:     Request{ActorRole: model.RoleAdmin, Action: model.ActionStatusChange, TerminalLinked: true},
			allowed: false,
		},
		{
			name:    "terminal-linked execution restricted to author",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleLeader, Action: model.ActionClose, TerminalLinked: true},
			allowed: false,
		},
		{
			name:    "terminal-linked execution allowed for author",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleMember, Action: model.ActionSetBreakeven, IsAuthor: true, TerminalLinked: true},
			allowed: true,
		},
		{
			name:    "terminal-linked note still allowed for leadership",
			req:     Request{ActorRole: model.RoleUser, MembershipRole: model.ClanRoleLeader, Action: model.ActionAddNote, TerminalLinked: true},
			allowed: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Decide(tc.req)
			assert.Equal(t, tc.allowed, decision.Allowed, "reason: %s", decision.Reason)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}
