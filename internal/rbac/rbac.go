package rbac

// Role is the closed set of caller roles. Authorization decisions take
// no other input about the caller.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleClinicOwner  Role = "CLINIC_OWNER"
	RoleAdmin        Role = "ADMIN"
	RoleMedicalStaff Role = "MEDICAL_STAFF"
	RoleReceptionist Role = "RECEPTIONIST"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleSuperAdmin,
	RoleClinicOwner,
	RoleAdmin,
	RoleMedicalStaff,
	RoleReceptionist,
}

// ParseRole validates a role string from a token claim. Unknown values
// yield ok=false and therefore an empty permission set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin, RoleClinicOwner, RoleAdmin, RoleMedicalStaff, RoleReceptionist:
		return Role(s), true
	}
	return "", false
}

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
	ActionExport Action = "export"
)

type Resource string

const (
	ResourceClinic      Resource = "clinic"
	ResourceStaff       Resource = "staff"
	ResourcePatient     Resource = "patient"
	ResourceAppointment Resource = "appointment"
	ResourceBilling     Resource = "billing"
	ResourceSettings    Resource = "settings"
	ResourceReports     Resource = "reports"
	ResourceAudit       Resource = "audit"
)

// Scope is the authorization context: own < clinic < all.
type Scope string

const (
	ScopeOwn    Scope = "own"
	ScopeClinic Scope = "clinic"
	ScopeAll    Scope = "all"
)

type grant struct {
	action   Action
	resource Resource
	scope    Scope
}

// roleGrants declares what each role may do. SUPER_ADMIN is handled in
// Can and needs no entries here.
var roleGrants = map[Role][]grant{
	RoleClinicOwner: {
		{ActionView, ResourceClinic, ScopeOwn},
		{ActionUpdate, ResourceClinic, ScopeOwn},
		{ActionManage, ResourceClinic, ScopeOwn},
		{ActionExport, ResourceClinic, ScopeOwn},

		{ActionManage, ResourceStaff, ScopeClinic},
		{ActionManage, ResourcePatient, ScopeClinic},
		{ActionManage, ResourceAppointment, ScopeClinic},

		{ActionView, ResourceBilling, ScopeClinic},
		{ActionCreate, ResourceBilling, ScopeClinic},
		{ActionUpdate, ResourceBilling, ScopeClinic},

		{ActionView, ResourceSettings, ScopeClinic},
		{ActionUpdate, ResourceSettings, ScopeClinic},

		{ActionView, ResourceReports, ScopeClinic},
		{ActionCreate, ResourceReports, ScopeClinic},
		{ActionExport, ResourceReports, ScopeClinic},

		{ActionView, ResourceAudit, ScopeClinic},
	},
	RoleAdmin: {
		{ActionView, ResourceClinic, ScopeOwn},
		{ActionExport, ResourceClinic, ScopeOwn},

		{ActionView, ResourceStaff, ScopeClinic},
		{ActionCreate, ResourceStaff, ScopeClinic},
		{ActionUpdate, ResourceStaff, ScopeClinic},

		{ActionManage, ResourcePatient, ScopeClinic},
		{ActionManage, ResourceAppointment, ScopeClinic},

		{ActionView, ResourceBilling, ScopeClinic},
		{ActionCreate, ResourceBilling, ScopeClinic},

		{ActionView, ResourceSettings, ScopeClinic},
		{ActionUpdate, ResourceSettings, ScopeClinic},

		{ActionView, ResourceReports, ScopeClinic},
		{ActionCreate, ResourceReports, ScopeClinic},
		{ActionExport, ResourceReports, ScopeClinic},

		{ActionView, ResourceAudit, ScopeClinic},
	},
	RoleMedicalStaff: {
		{ActionView, ResourceClinic, ScopeOwn},

		{ActionView, ResourceStaff, ScopeClinic},

		{ActionView, ResourcePatient, ScopeClinic},
		{ActionUpdate, ResourcePatient, ScopeClinic},

		{ActionView, ResourceAppointment, ScopeClinic},
		{ActionCreate, ResourceAppointment, ScopeClinic},
		{ActionUpdate, ResourceAppointment, ScopeClinic},

		{ActionView, ResourceReports, ScopeClinic},
	},
	RoleReceptionist: {
		{ActionView, ResourceClinic, ScopeOwn},

		{ActionView, ResourceStaff, ScopeClinic},

		{ActionView, ResourcePatient, ScopeClinic},
		{ActionCreate, ResourcePatient, ScopeClinic},
		{ActionUpdate, ResourcePatient, ScopeClinic},

		{ActionView, ResourceAppointment, ScopeClinic},
		{ActionCreate, ResourceAppointment, ScopeClinic},
		{ActionUpdate, ResourceAppointment, ScopeClinic},
		{ActionDelete, ResourceAppointment, ScopeClinic},

		{ActionView, ResourceBilling, ScopeClinic},
		{ActionCreate, ResourceBilling, ScopeClinic},
	},
}

// Can decides whether a role may perform an action on a resource at a
// given scope. It is total over all inputs and denies by default: an
// unknown role carries no grants.
func Can(role Role, action Action, resource Resource, scope Scope) bool {
	if role == RoleSuperAdmin {
		return true
	}

	for _, g := range roleGrants[role] {
		if g.resource != resource {
			continue
		}
		if g.action != action && g.action != ActionManage {
			continue
		}
		// manage does not imply export; exports are granted explicitly
		if action == ActionExport && g.action == ActionManage {
			continue
		}
		if scopeCovers(g.scope, scope) {
			return true
		}
	}
	return false
}

// scopeCovers reports whether a granted scope satisfies a requested
// one. A clinic-wide grant covers requests about the caller's own
// records; an all-clinics grant covers everything.
func scopeCovers(granted, requested Scope) bool {
	if granted == requested {
		return true
	}
	switch granted {
	case ScopeAll:
		return true
	case ScopeClinic:
		return requested == ScopeOwn
	}
	return false
}
