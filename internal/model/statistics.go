package model

// InventoryStatistics summarizes asset allocation and request volume
type InventoryStatistics struct {
	TotalAssets       int64            `json:"total_assets"`
	AllocatedAssets   int64            `json:"allocated_assets"`
	UnallocatedAssets int64            `json:"unallocated_assets"`
	RequestsByStatus  []StatusCount    `json:"requests_by_status"`
	TopRequested      []AssetRequested `json:"top_requested_assets"`
}

// StatusCount is the number of requests carrying a given status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AssetRequested ranks an asset by how much of it has been requested
type AssetRequested struct {
	AssetID       string `json:"asset_id"`
	AssetName     string `json:"asset_name"`
	RequestCount  int64  `json:"request_count"`
	TotalQuantity int64  `json:"total_quantity"`
}
