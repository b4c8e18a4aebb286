package auth

const (
	RoleEmployee   = "employee"
	RoleSpecialist = "specialist"
	RoleManager    = "manager"
	RoleFinance    = "finance"
	RoleHR         = "hr"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

const (
	PermAdjustmentsRead       = "adjustments.read"
	PermAdjustmentsWrite      = "adjustments.write"
	PermAdjustmentsFirstLine  = "adjustments.firstline"
	PermAdjustmentsSecondLine = "adjustments.secondline"
	PermAdjustmentsRefund     = "adjustments.refund"
	PermAuditRead             = "audit.read"
	PermSystemAdmin           = "admin.system"
)

var DefaultPermissions = []string{
	PermAdjustmentsRead,
	PermAdjustmentsWrite,
	PermAdjustmentsFirstLine,
	PermAdjustmentsSecondLine,
	PermAdjustmentsRefund,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermAdjustmentsRead,
		PermAdjustmentsWrite,
	},
	RoleSpecialist: {
		PermAdjustmentsRead,
		PermAdjustmentsFirstLine,
	},
	RoleManager: {
		PermAdjustmentsRead,
		PermAdjustmentsSecondLine,
	},
	RoleFinance: {
		PermAdjustmentsRead,
		PermAdjustmentsRefund,
	},
	RoleHR: {
		PermAdjustmentsRead,
		PermAdjustmentsWrite,
		PermAdjustmentsFirstLine,
		PermAdjustmentsSecondLine,
		PermAdjustmentsRefund,
		PermAuditRead,
		PermSystemAdmin,
	},
}
