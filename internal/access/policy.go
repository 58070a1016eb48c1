// Package access holds the static role allow-list for every gated operation.
//
// There is no role hierarchy: admin is not implicitly allowed to do what a
// procurement manager can, each operation names its roles explicitly.
package access

import "assetdesk/internal/model"

// Operation names a gated use case.
type Operation string

const (
	OpCreateAsset           Operation = "asset.create"
	OpGetAsset              Operation = "asset.get"
	OpUpdateAsset           Operation = "asset.update"
	OpDeleteAsset           Operation = "asset.delete"
	OpListAssets            Operation = "asset.list"
	OpAllocateAsset         Operation = "asset.allocate"
	OpCreateRequest         Operation = "request.create"
	OpUpdateRequestStatus   Operation = "request.update_status"
	OpListPendingRequests   Operation = "request.list_pending"
	OpListCompletedRequests Operation = "request.list_completed"
	OpListOwnRequests       Operation = "request.list_own"
	OpListUsers             Operation = "user.list"
	OpCurrentUser           Operation = "user.me"
	OpLogout                Operation = "auth.logout"
	OpListAuditLogs         Operation = "audit.list"
	OpViewStatistics        Operation = "statistics.view"
	OpSubscribeEvents       Operation = "events.subscribe"
	OpObserveUserEvents     Operation = "events.observe_all"
)

var (
	managers    = []model.Role{model.RoleAdmin, model.RoleProcurementManager}
	procurement = []model.Role{model.RoleProcurementManager}
	employees   = []model.Role{model.RoleEmployee}
	anyone      = model.AllRoles()
)

var matrix = map[Operation][]model.Role{
	OpCreateAsset:           managers,
	OpUpdateAsset:           managers,
	OpDeleteAsset:           managers,
	OpGetAsset:              anyone,
	OpListAssets:            anyone,
	OpAllocateAsset:         procurement,
	OpCreateRequest:         employees,
	OpUpdateRequestStatus:   procurement,
	OpListPendingRequests:   procurement,
	OpListCompletedRequests: procurement,
	OpListOwnRequests:       anyone,
	OpListUsers:             managers,
	OpCurrentUser:           anyone,
	OpLogout:                anyone,
	OpListAuditLogs:         managers,
	OpViewStatistics:        managers,
	OpSubscribeEvents:       anyone,
	OpObserveUserEvents:     procurement,
}

// Allowed reports whether role may perform op. Unknown roles and unknown
// operations are always denied.
func Allowed(role model.Role, op Operation) bool {
	if !role.Valid() {
		return false
	}
	for _, r := range matrix[op] {
		if r == role {
			return true
		}
	}
	return false
}
