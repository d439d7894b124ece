package models

// Permissions are the capabilities of the user driving the console.
type Permissions struct {
	CanUpload bool `json:"can_upload"`
	CanVerify bool `json:"can_verify"`
	CanManage bool `json:"can_manage"`
}

// FullAccess grants every capability.
func FullAccess() Permissions {
	return Permissions{CanUpload: true, CanVerify: true, CanManage: true}
}
