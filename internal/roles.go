package internal

// Role is a user's role inside one organization. Roles are ranked
// owner > admin > manager > employee.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// CanManage reports whether the role may mutate organization resources.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanSeeEmails reports whether member listings include email addresses.
func (r Role) CanSeeEmails() bool {
	return r == RoleOwner || r == RoleAdmin
}
