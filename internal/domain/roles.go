package domain

// Role is the closed set of positions in the supervision chain, ordered
// bottom (Saalik) to top (Admin).
type Role string

const (
	RoleSaalik Role = "Saalik"
	RoleMurabi Role = "Murabi"
	RoleMasool Role = "Masool"
	RoleSheikh Role = "Sheikh"
	RoleAdmin  Role = "Admin"
)

var roleRanks = map[Role]int{
	RoleSaalik: 1,
	RoleMurabi: 2,
	RoleMasool: 3,
	RoleSheikh: 4,
	RoleAdmin:  5,
}

// creationRules is the fixed role-creation table. Any pair not listed is
// denied.
var creationRules = map[Role][]Role{
	RoleAdmin:  {RoleSheikh, RoleMasool, RoleMurabi, RoleSaalik, RoleAdmin},
	RoleSheikh: {RoleMasool, RoleMurabi},
	RoleMasool: {RoleMurabi, RoleSaalik},
	RoleMurabi: {RoleSaalik},
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// CanCreate reports whether a user holding r may create a user with target.
func (r Role) CanCreate(target Role) bool {
	for _, allowed := range creationRules[r] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Outranks reports whether r sits strictly above target in the chain. Used
// for management operations (deactivate, force logout) that require seniority
// rather than a direct reporting line.
func (r Role) Outranks(target Role) bool {
	return roleRanks[r] > roleRanks[target]
}

// Supervisory reports whether r reviews the work of others (everything above
// Saalik).
func (r Role) Supervisory() bool {
	return roleRanks[r] > roleRanks[RoleSaalik]
}
