package ebay

// InventoryItem represents an eBay inventory item
type InventoryItem struct {
	SKU          string        `json:"sku,omitempty"`
	Locale       string        `json:"locale,omitempty"`
	Product      *Product      `json:"product,omitempty"`
	Condition    string        `json:"condition,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

// Product holds product details
type Product struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Brand       string   `json:"brand,omitempty"`
}

// Availability holds inventory availability
type Availability struct {
	ShipToLocationAvailability *ShipToLocation `json:"shipToLocationAvailability,omitempty"`
}

// ShipToLocation holds quantity info
type ShipToLocation struct {
	Quantity int `json:"quantity"`
}

// Offer represents an eBay listing offer
type Offer struct {
	OfferID             string           `json:"offerId,omitempty"`
	SKU                 string           `json:"sku,omitempty"`
	MarketplaceID       string           `json:"marketplaceId,omitempty"`
	Format              string           `json:"format,omitempty"`
	AvailableQuantity   int              `json:"availableQuantity,omitempty"`
	CategoryID          string           `json:"categoryId,omitempty"`
	ListingDescription  string           `json:"listingDescription,omitempty"`
	MerchantLocationKey string           `json:"merchantLocationKey,omitempty"`
	PricingSummary      *PricingSummary  `json:"pricingSummary,omitempty"`
	ListingPolicies     *ListingPolicies `json:"listingPolicies,omitempty"`
	Status              string           `json:"status,omitempty"`
	Listing             *ListingDetails  `json:"listing,omitempty"`
}

// PricingSummary holds pricing info
type PricingSummary struct {
	Price *Amount `json:"price,omitempty"`
}

// Amount holds monetary values; eBay sends the value as a decimal string
type Amount struct {
	Value    string `json:"value,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ListingPolicies holds policy references
type ListingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId,omitempty"`
	PaymentPolicyID     string `json:"paymentPolicyId,omitempty"`
	ReturnPolicyID      string `json:"returnPolicyId,omitempty"`
}

// ListingDetails holds listing info
type ListingDetails struct {
	ListingID     string `json:"listingId,omitempty"`
	ListingStatus string `json:"listingStatus,omitempty"`
}

// OffersResponse is the response from getOffers
type OffersResponse struct {
	Offers []Offer `json:"offers,omitempty"`
	Total  int     `json:"total,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
	Next   string  `json:"next,omitempty"`
}

// InventoryItemsResponse is the response from getInventoryItems
type InventoryItemsResponse struct {
	InventoryItems []InventoryItem `json:"inventoryItems,omitempty"`
	Total          int             `json:"total,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
	Next           string          `json:"next,omitempty"`
}

type createOfferResponse struct {
	OfferID string `json:"offerId"`
}

type publishOfferResponse struct {
	ListingID string `json:"listingId"`
}
