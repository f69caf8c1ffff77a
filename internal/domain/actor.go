package domain

// Actor is the resolved principal invoking a lifecycle operation, with the
// guild-scoped capabilities needed by the authorization policy.
type Actor struct {
	ID             string
	DisplayName    string
	RoleIDs        []string
	ManageChannels bool
	ManageGuild    bool
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(roleID string) bool {
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
