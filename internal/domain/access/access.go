// Package access evaluates who may invoke which operation. The check runs once
// at the edge; services never re-derive roles.
package access

import "strings"

type Role string

const (
	RoleNone     Role = ""
	RoleAdmin    Role = "admin"
	RoleDirector Role = "director"
	RoleTeacher  Role = "teacher"
)

type Action string

const (
	ActionViewRoster     Action = "view_roster"
	ActionEditRoster     Action = "edit_roster"
	ActionImport         Action = "import"
	ActionRecordScores   Action = "record_scores"
	ActionViewReports    Action = "view_reports"
	ActionNotify         Action = "notify"
	ActionManageDelivery Action = "manage_delivery"
	ActionManageStaff    Action = "manage_staff"
)

var grants = map[Role][]Action{
	RoleAdmin: {
		ActionViewRoster, ActionEditRoster, ActionImport, ActionRecordScores,
		ActionViewReports, ActionNotify, ActionManageDelivery, ActionManageStaff,
	},
	RoleDirector: {
		ActionViewRoster, ActionEditRoster, ActionImport, ActionRecordScores,
		ActionViewReports, ActionNotify, ActionManageDelivery,
	},
	RoleTeacher: {
		ActionViewRoster, ActionRecordScores, ActionViewReports, ActionNotify,
	},
}

// Can reports whether role is allowed to perform action.
func Can(role Role, action Action) bool {
	for _, a := range grants[role] {
		if a == action {
			return true
		}
	}
	return false
}

// ParseRole maps free text to a Role, RoleNone when unknown.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleDirector, RoleTeacher:
		return r
	}
	return RoleNone
}

// Directory resolves an external account id to a role.
type Directory map[int64]Role

func (d Directory) RoleOf(id int64) Role {
	return d[id]
}
