package model

import "testing"

func TestResolveRole(t *testing.T) {
	tests := []struct {
		email string
		want  Role
	}{
		{"a@gmail.com", RoleEmployee},
		{"A.B@GMail.com", RoleEmployee},
		{"a@manager.com", RoleProcurementManager},
		{"Boss@Manager.COM", RoleProcurementManager},
		{"root@admin.com", RoleAdmin},
		{"  root@admin.com ", RoleAdmin},
		{"a@yahoo.com", RoleUnresolved},
		{"a@manager.gmail.com", RoleEmployee},
		{"a@admin.com.evil.org", RoleUnresolved},
		{"gmail.com", RoleUnresolved},
		{"", RoleUnresolved},
	}

	for _, tt := range tests {
		if got := ResolveRole(tt.email); got != tt.want {
			t.Errorf("ResolveRole(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestResolveRoleFirstMatchWins(t *testing.T) {
	saved := domainRules
	defer func() { domainRules = saved }()

	domainRules = []domainRule{
		{role: RoleAdmin, suffix: "@corp.example.com"},
		{role: RoleEmployee, suffix: ".example.com"},
	}

	if got := ResolveRole("x@corp.example.com"); got != RoleAdmin {
		t.Fatalf("expected first rule to win, got %q", got)
	}
	if got := ResolveRole("x@other.example.com"); got != RoleEmployee {
		t.Fatalf("expected second rule, got %q", got)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range AllRoles() {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{RoleUnresolved, "Admin", "manager", "staff"} {
		if r.Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}
