package domain

import "strings"

// Permission bits from the Discord permission bitfield.
const (
	PermissionAdministrator  = 1 << 3
	PermissionManageMessages = 1 << 13
)

// Member represents a guild member with resolved roles and permissions
type Member struct {
	UserID      string
	Username    string
	RoleIDs     []string
	RoleNames   []string
	Permissions uint64
}

// HasPermission checks a single permission bit, treating administrator
// as implying everything.
func (m *Member) HasPermission(bit uint64) bool {
	if m.Permissions&PermissionAdministrator != 0 {
		return true
	}
	return m.Permissions&bit != 0
}

// IsAdministrator checks the administrator bit
func (m *Member) IsAdministrator() bool {
	return m.Permissions&PermissionAdministrator != 0
}

// IsModerator checks whether the member may run moderation commands:
// manage-messages, administrator, or a role whose name suggests staff.
func (m *Member) IsModerator() bool {
	if m.HasPermission(PermissionManageMessages) {
		return true
	}
	for _, name := range m.RoleNames {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "admin") || strings.Contains(lower, "mod") || strings.Contains(lower, "staff") {
			return true
		}
	}
	return false
}

// HasRole checks whether the member holds the given role ID
func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role represents a guild role (value object)
type Role struct {
	ID   string
	Name string
}

// LinkedMember represents a user with a connected Discord account and a
// known rank, the input unit for bulk role synchronization.
type LinkedMember struct {
	DiscordID string
	Rank      string
}
