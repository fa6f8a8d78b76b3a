package service

import "database/sql"

// Messaging denial reasons. All applicable reasons are reported, not just the
// first one found.
const (
	ReasonNotFriends    = "not_friends"
	ReasonYouBlocked    = "you_blocked"
	ReasonBlockedByPeer = "blocked_by_peer"
)

// Authorizer derives whether two users may message each other. It is a pure
// read over the current relationship state; every call re-reads storage so
// the answer always reflects the latest committed write.
type Authorizer struct {
	db *sql.DB
}

func NewAuthorizer(db *sql.DB) *Authorizer {
	return &Authorizer{db: db}
}

// CanMessage is true iff a and b are friends and neither has blocked the
// other. On denial the reason list carries every failing condition.
func (a *Authorizer) CanMessage(userID, peerID string) (bool, []string, error) {
	friends, err := edgeExists(a.db, userID, peerID)
	if err != nil {
		return false, nil, internal("database error")
	}
	youBlocked, err := blockExists(a.db, userID, peerID)
	if err != nil {
		return false, nil, internal("database error")
	}
	blockedByPeer, err := blockExists(a.db, peerID, userID)
	if err != nil {
		return false, nil, internal("database error")
	}

	var reasons []string
	if !friends {
		reasons = append(reasons, ReasonNotFriends)
	}
	if youBlocked {
		reasons = append(reasons, ReasonYouBlocked)
	}
	if blockedByPeer {
		reasons = append(reasons, ReasonBlockedByPeer)
	}

	return len(reasons) == 0, reasons, nil
}

// DenialError maps the highest-priority denial reason to its service error.
// Block reasons win over not_friends: being blocked is the more specific
// condition (a block always implies the friendship was severed).
func DenialError(reasons []string) *Error {
	for _, r := range reasons {
		if r == ReasonYouBlocked {
			return ErrYouBlocked
		}
	}
	for _, r := range reasons {
		if r == ReasonBlockedByPeer {
			return ErrBlockedByPeer
		}
	}
	return ErrNotFriends
}
