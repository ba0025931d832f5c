package model

// ProxyResult mirrors what a stored procedure or query returned. The proxy
// never reshapes it: recordsets stay in database order and rowsAffected holds
// one count per statement that reported one.
type ProxyResult struct {
	Recordsets   []Recordset `json:"recordsets"`
	RowsAffected []int64     `json:"rowsAffected"`
}

// NewProxyResult returns an empty result whose slices marshal as [] rather
// than null.
func NewProxyResult() *ProxyResult {
	return &ProxyResult{
		Recordsets:   []Recordset{},
		RowsAffected: []int64{},
	}
}

// First returns the first recordset, or an empty one when the call produced
// no result sets.
func (r *ProxyResult) First() Recordset {
	if r == nil || len(r.Recordsets) == 0 {
		return Recordset{}
	}
	return r.Recordsets[0]
}

// ErrorResponse is the error envelope returned by every proxy endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StoreStatus is the body of GET /api/store.
type StoreStatus struct {
	Store    string `json:"store"`
	Database string `json:"database"`
	Status   string `json:"status"`
}

// Pool status values reported by StoreStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// DashboardResponse is the body of GET /api/dashboard.
type DashboardResponse struct {
	Success  bool      `json:"success"`
	Store    string    `json:"store"`
	Database string    `json:"database"`
	Data     Recordset `json:"data"`
}

// Client is one entry of GET /api/clients.
type Client struct {
	ClientName string `json:"client_name"`
}
