package catalog

import "github.com/2beens/fitlog/internal/auth"

// CanManageGlobal says whether the session may create or mutate global
// catalog entries. Superusers hold that right; admins inherit it.
func CanManageGlobal(session *auth.Session) bool {
	if session == nil {
		return false
	}
	return session.IsSuperuser || session.IsAdmin
}

// CanMutate is the single authorization rule for catalog writes.
// Global entries belong to the superusers; owned entries belong to
// their owner, with admins allowed to step in.
func CanMutate(session *auth.Session, item *Item) bool {
	if session == nil {
		return false
	}
	if item.Global() {
		return CanManageGlobal(session)
	}
	if session.IsAdmin {
		return true
	}
	return item.OwnerID != nil && *item.OwnerID == session.UserID
}
