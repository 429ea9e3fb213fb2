// Package authz centralizes who may do what to a trade. One policy object
// replaces the role checks that would otherwise spread across handlers,
// and every denial carries a human-readable reason.
package authz

import "signalengine/src/model"

// Request describes an attempted trade action.
type Request struct {
	ActorRole      string // platform role: USER or ADMIN
	MembershipRole string // clan role of the actor, empty if not a member
	Action         string // one of the model.Action* kinds
	IsAuthor       bool   // actor authored/tracks the trade
	TerminalLinked bool   // a live terminal trade backs this trade
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// Decide evaluates a request. Terminal-linked restrictions run first: a
// trade backed by real terminal activity only changes status through
// terminal reports, and only its author may command executions on it.
func (p *Policy) Decide(req Request) Decision {
	if req.TerminalLinked {
		if req.Action == model.ActionStatusChange {
			return deny("terminal-linked trade status follows terminal reports")
		}
		if model.ExecutableByTerminal(req.Action) && !req.IsAuthor {
			return deny("only the trade author may request execution on a terminal-linked trade")
		}
	}

	if req.ActorRole == model.RoleAdmin {
		return allow("platform admin")
	}
	if req.IsAuthor {
		return allow("trade author")
	}
	if req.MembershipRole == model.ClanRoleLeader || req.MembershipRole == model.ClanRoleCoLeader {
		return allow("clan leadership")
	}
	if req.Action == model.ActionAddNote {
		return allow("members may attach notes")
	}

	return deny("members may only attach notes")
}
