package auth

import "slices"

// Permission keys.
const (
	PermUsersView          = "users.view"
	PermUsersManage        = "users.manage"
	PermSessionsManage     = "sessions.manage"
	PermCondominiumsView   = "condominiums.view"
	PermCondominiumsManage = "condominiums.manage"
	PermPeopleView         = "people.view"
	PermPeopleManage       = "people.manage"
	PermDevicesView        = "devices.view"
	PermDevicesManage      = "devices.manage"
	PermReportsView        = "reports.view"
	PermReportsCreate      = "reports.create"
	PermReportsManage      = "reports.manage"
	PermMaintenanceView    = "maintenance.view"
	PermMaintenanceCreate  = "maintenance.create"
	PermMaintenanceManage  = "maintenance.manage"
	PermLogosManage        = "logos.manage"
	PermExport             = "export"
)

// AllPermissions is the catalog accepted in a user's explicit list.
var AllPermissions = []string{
	PermUsersView, PermUsersManage, PermSessionsManage,
	PermCondominiumsView, PermCondominiumsManage,
	PermPeopleView, PermPeopleManage,
	PermDevicesView, PermDevicesManage,
	PermReportsView, PermReportsCreate, PermReportsManage,
	PermMaintenanceView, PermMaintenanceCreate, PermMaintenanceManage,
	PermLogosManage, PermExport,
}

var profileDefaults = map[Profile][]string{
	ProfileManager: {
		PermUsersView, PermUsersManage,
		PermCondominiumsView,
		PermPeopleView, PermPeopleManage,
		PermDevicesView,
		PermReportsView, PermReportsCreate, PermReportsManage,
		PermMaintenanceView, PermMaintenanceCreate, PermMaintenanceManage,
		PermExport,
	},
	ProfileTechnician: {
		PermCondominiumsView,
		PermDevicesView, PermDevicesManage,
		PermReportsView,
		PermMaintenanceView, PermMaintenanceCreate, PermMaintenanceManage,
	},
	ProfileDoorman: {
		PermCondominiumsView,
		PermPeopleView,
		PermReportsView, PermReportsCreate,
		PermMaintenanceView, PermMaintenanceCreate,
	},
	ProfileResident: {
		PermReportsCreate,
		PermMaintenanceCreate,
	},
}

// KnownPermission reports whether key is in the catalog.
func KnownPermission(key string) bool { return slices.Contains(AllPermissions, key) }

// DefaultPermissions returns the implicit permission set of a profile.
func DefaultPermissions(p Profile) []string {
	if p == ProfileAdmin {
		return slices.Clone(AllPermissions)
	}
	return slices.Clone(profileDefaults[p])
}

// Allowed is the single permission predicate: admin holds everything,
// other profiles hold their defaults plus the explicit list.
func Allowed(p Profile, explicit []string, key string) bool {
	if p == ProfileAdmin {
		return true
	}
	if slices.Contains(profileDefaults[p], key) {
		return true
	}
	return slices.Contains(explicit, key)
}

// Effective returns the deduplicated union of defaults and explicit keys.
func Effective(p Profile, explicit []string) []string {
	out := DefaultPermissions(p)
	for _, k := range explicit {
		if KnownPermission(k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func CanManageUsers(p Profile, perms []string) bool { return Allowed(p, perms, PermUsersManage) }

func CanManageCondominiums(p Profile, perms []string) bool {
	return Allowed(p, perms, PermCondominiumsManage)
}

func CanViewDevices(p Profile, perms []string) bool   { return Allowed(p, perms, PermDevicesView) }
func CanManageDevices(p Profile, perms []string) bool { return Allowed(p, perms, PermDevicesManage) }
func CanViewReports(p Profile, perms []string) bool   { return Allowed(p, perms, PermReportsView) }
func CanCreateReports(p Profile, perms []string) bool { return Allowed(p, perms, PermReportsCreate) }
func CanManageReports(p Profile, perms []string) bool { return Allowed(p, perms, PermReportsManage) }

func CanManageMaintenance(p Profile, perms []string) bool {
	return Allowed(p, perms, PermMaintenanceManage)
}

func CanManageLogos(p Profile, perms []string) bool { return Allowed(p, perms, PermLogosManage) }
func CanExport(p Profile, perms []string) bool      { return Allowed(p, perms, PermExport) }
