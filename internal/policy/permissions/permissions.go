package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// CanManageLedger reports whether member may register the reporting channel
// and delete reports: the creator, or an administrator holding any of the
// manage, promote or restrict rights.
func CanManageLedger(member *api.ChatMember) bool {
	switch {
	case member == nil:
		return false
	case member.IsCreator():
		return true
	case !member.IsAdministrator():
		return false
	}
	return member.CanManageChat || member.CanPromoteMembers || member.CanRestrictMembers
}
