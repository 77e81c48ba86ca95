package api

// StatusResponse is the payload for GET /.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// PingResponse is the payload for GET /ping and GET /api/ping.
type PingResponse struct {
	Msg string `json:"msg"`
}

// RegionInfo is one entry in GET /api/regions.
type RegionInfo struct {
	Region  string `json:"region"`
	Records int    `json:"records"`
}

// RegionsResponse is the payload for GET /api/regions.
type RegionsResponse struct {
	Source  string       `json:"source,omitempty"`
	Records int          `json:"records"`
	Regions []RegionInfo `json:"regions"`
}

// errorResponse is the JSON error body. The field name matches what
// existing dashboard clients already parse.
type errorResponse struct {
	Detail string `json:"detail"`
}
