package subscription

type CheckoutItemRequest struct {
	FlagProductID int64 `json:"flag_product_id" binding:"required"`
	Quantity      int   `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	CustomerID       int64                 `json:"customer_id" binding:"required"`
	Type             SubscriptionType      `json:"type" binding:"required,oneof=annual onetime"`
	SelectedHolidays []int64               `json:"selected_holidays" binding:"required,min=1"`
	Items            []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CheckoutResponse struct {
	SubscriptionID        int64  `json:"subscription_id"`
	SubscriptionReference string `json:"subscription_reference"`
	CheckoutURL           string `json:"checkout_url"`
}

type CancelSubscriptionRequest struct {
	Reason      string `json:"reason"`
	AtPeriodEnd bool   `json:"at_period_end"`
}

type SubscriptionListFilters struct {
	Status     string `form:"status"`
	CustomerID int64  `form:"customer_id"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

type SubscriptionListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
}
