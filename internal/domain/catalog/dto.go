package catalog

type CreateProductRequest struct {
	FlagType      string  `json:"flag_type" binding:"required"`
	FlagSize      string  `json:"flag_size" binding:"required"`
	OneTimePrice  float64 `json:"one_time_price" binding:"required"`
	AnnualPrice   float64 `json:"annual_price" binding:"required"`
	StockQuantity int     `json:"stock_quantity"`
	Active        bool    `json:"active"`
}

type UpdateProductRequest struct {
	OneTimePrice *float64 `json:"one_time_price"`
	AnnualPrice  *float64 `json:"annual_price"`
	Active       *bool    `json:"active"`
}
