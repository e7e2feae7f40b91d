package identity

// GuestUserID is recorded on orders placed without an account.
const GuestUserID = "guest"

// Identity describes who owns the current browsing session. Anonymous
// visitors carry only a session ID (from the session cookie); signed-in
// users additionally carry their account fields.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	SessionID string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// OwnerKey is the key cart and wishlist records are stored under: the user
// ID for accounts, the session ID for guests.
func (i Identity) OwnerKey() string {
	if i.Authenticated() {
		return i.UserID
	}
	return i.SessionID
}

// OrderUserID is the user ID recorded on an order placed by this identity.
func (i Identity) OrderUserID() string {
	if i.Authenticated() {
		return i.UserID
	}
	return GuestUserID
}
