package models

type QueryType string

const (
	QueryTypeOpenGrants     QueryType = "open_grants"
	QueryTypeGrantByID      QueryType = "grant_by_id"
	QueryTypeUserProfile    QueryType = "user_profile"
	QueryTypeGrantIDsExist  QueryType = "grant_ids_exist"
	QueryTypeUserIDsExist   QueryType = "user_ids_exist"
	QueryTypeGrantsByStatus QueryType = "grants_by_status"
)

func (q QueryType) Valid() bool {
	switch q {
	case QueryTypeOpenGrants, QueryTypeGrantByID, QueryTypeUserProfile,
		QueryTypeGrantIDsExist, QueryTypeUserIDsExist, QueryTypeGrantsByStatus:
		return true
	}
	return false
}
