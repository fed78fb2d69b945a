// model/privileges.go
package model

// Platform privileges
const (
	PrivilegeManagePolicies      = "MANAGE_POLICIES"
	PrivilegeManageUsersGroups   = "MANAGE_USERS_AND_GROUPS"
	PrivilegeViewAnalytics       = "VIEW_ANALYTICS"
	PrivilegeManageIngestion     = "MANAGE_INGESTION"
	PrivilegeGenerateAccessToken = "GENERATE_PERSONAL_ACCESS_TOKENS"
)

// Metadata privileges
const (
	PrivilegeEditEntity       = "EDIT_ENTITY"
	PrivilegeEditEntityTags   = "EDIT_ENTITY_TAGS"
	PrivilegeEditEntityOwners = "EDIT_ENTITY_OWNERS"
	PrivilegeEditEntityDocs   = "EDIT_ENTITY_DOCS"
	PrivilegeViewEntityPage   = "VIEW_ENTITY_PAGE"
)
