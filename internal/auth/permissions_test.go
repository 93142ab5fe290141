package auth

import "testing"

func TestAllowed(t *testing.T) {
	cases := []struct {
		name     string
		profile  Profile
		explicit []string
		key      string
		want     bool
	}{
		{"admin holds everything", ProfileAdmin, nil, PermLogosManage, true},
		{"manager default", ProfileManager, nil, PermUsersManage, true},
		{"manager lacks logos", ProfileManager, nil, PermLogosManage, false},
		{"explicit grant", ProfileManager, []string{PermLogosManage}, PermLogosManage, true},
		{"technician devices", ProfileTechnician, nil, PermDevicesManage, true},
		{"doorman cannot manage devices", ProfileDoorman, nil, PermDevicesManage, false},
		{"resident creates reports", ProfileResident, nil, PermReportsCreate, true},
		{"resident cannot view reports", ProfileResident, nil, PermReportsView, false},
		{"unknown profile", Profile("ghost"), nil, PermReportsView, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.profile, tc.explicit, tc.key); got != tc.want {
				t.Fatalf("Allowed(%s, %v, %s) = %v, want %v", tc.profile, tc.explicit, tc.key, got, tc.want)
			}
		})
	}
}

func TestNamedPredicates(t *testing.T) {
	if !CanManageUsers(ProfileAdmin, nil) || CanManageUsers(ProfileDoorman, nil) {
		t.Fatal("CanManageUsers mismatch")
	}
	if CanManageCondominiums(ProfileManager, nil) {
		t.Fatal("manager must not manage condominiums by default")
	}
	if !CanViewDevices(ProfileTechnician, nil) || CanViewDevices(ProfileResident, nil) {
		t.Fatal("CanViewDevices mismatch")
	}
	if !CanExport(ProfileResident, []string{PermExport}) {
		t.Fatal("explicit export grant ignored")
	}
	if !CanManageMaintenance(ProfileTechnician, nil) || CanManageReports(ProfileTechnician, nil) {
		t.Fatal("technician predicates mismatch")
	}
	if !CanCreateReports(ProfileDoorman, nil) || !CanViewReports(ProfileDoorman, nil) {
		t.Fatal("doorman report predicates mismatch")
	}
	if CanManageDevices(ProfileManager, nil) || CanManageLogos(ProfileTechnician, nil) {
		t.Fatal("unexpected grant")
	}
}

func TestEffectiveDedupesAndDropsUnknown(t *testing.T) {
	got := Effective(ProfileResident, []string{PermReportsCreate, "bogus", PermExport})
	want := []string{PermReportsCreate, PermMaintenanceCreate, PermExport}
	if len(got) != len(want) {
		t.Fatalf("Effective = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Effective = %v, want %v", got, want)
		}
	}
}

func TestPrincipalScope(t *testing.T) {
	admin := NewPrincipal(User{ID: "a", Profile: ProfileAdmin, CondominiumID: "c1"}, Session{})
	if admin.Scope() != "" || !admin.CanAccessCondominium("c2") {
		t.Fatal("admin must see every condominium")
	}
	mgr := NewPrincipal(User{ID: "m", Profile: ProfileManager, CondominiumID: "c1"}, Session{})
	if !mgr.CanAccessCondominium("c1") || mgr.CanAccessCondominium("c2") {
		t.Fatal("manager scope mismatch")
	}
	if !mgr.CanAccessCondominium("") {
		t.Fatal("unscoped records are visible")
	}
	if !mgr.HasAll(PermUsersView, PermExport) || mgr.HasAll(PermUsersView, PermLogosManage) {
		t.Fatal("HasAll mismatch")
	}
}
