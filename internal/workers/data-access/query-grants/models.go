package querygrants

type Input struct {
	QueryType string                 `json:"queryType"`
	GrantID   string                 `json:"grantId,omitempty"`
	GrantIDs  []string               `json:"grantIds,omitempty"`
	UserID    string                 `json:"userId,omitempty"`
	UserIDs   []string               `json:"userIds,omitempty"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}
