package ebay

import (
	"context"
	"fmt"
	"strings"

	"github.com/julienbonastre/scantosold/internal/calculator"
)

const pageSize = 100

// Listing is the flattened view of an offer and its inventory item
type Listing struct {
	SKU       string  `json:"sku"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency,omitempty"`
	OfferID   string  `json:"offer_id,omitempty"`
	ListingID string  `json:"listing_id,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// PublishRequest describes a local item to list on eBay
type PublishRequest struct {
	SKU         string
	Title       string
	Description string
	Price       float64
	Quantity    int
	// OfferID resumes an earlier attempt whose offer was created but not
	// published; no new offer is created when it is set.
	OfferID string
}

// PublishResult identifies the created offer and listing
type PublishResult struct {
	OfferID   string `json:"offer_id"`
	ListingID string `json:"listing_id"`
}

// ListAllListings pages through every inventory item and offer and joins
// them by SKU. Offers without an inventory item are still returned.
func (c *Client) ListAllListings(ctx context.Context) ([]Listing, error) {
	titles := make(map[string]string)
	for offset := 0; ; offset += pageSize {
		resp, err := c.GetInventoryItems(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list inventory items: %w", err)
		}
		for _, item := range resp.InventoryItems {
			if item.Product != nil {
				titles[strings.ToUpper(item.SKU)] = item.Product.Title
			}
		}
		if len(resp.InventoryItems) < pageSize {
			break
		}
	}

	var listings []Listing
	for offset := 0; ; offset += pageSize {
		resp, err := c.GetOffers(ctx, "", pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list offers: %w", err)
		}
		for _, offer := range resp.Offers {
			listings = append(listings, toListing(offer, titles[strings.ToUpper(offer.SKU)]))
		}
		if len(resp.Offers) < pageSize {
			break
		}
	}
	return listings, nil
}

func toListing(offer Offer, title string) Listing {
	listing := Listing{
		SKU:     offer.SKU,
		Title:   title,
		OfferID: offer.OfferID,
		Status:  offer.Status,
	}
	if offer.PricingSummary != nil && offer.PricingSummary.Price != nil {
		listing.Price = calculator.ParseAmount(offer.PricingSummary.Price.Value)
		listing.Currency = offer.PricingSummary.Price.Currency
	}
	if offer.Listing != nil {
		listing.ListingID = offer.Listing.ListingID
	}
	return listing
}

// Publish lists an item: it upserts the inventory item, creates an offer at
// the requested price using the configured policies, then publishes it.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.SKU == "" {
		return nil, fmt.Errorf("publish: sku is required")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	item := InventoryItem{
		SKU:       req.SKU,
		Condition: "USED_GOOD",
		Product: &Product{
			Title:       req.Title,
			Description: req.Description,
		},
		Availability: &Availability{
			ShipToLocationAvailability: &ShipToLocation{Quantity: req.Quantity},
		},
	}
	if err := c.CreateOrReplaceInventoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("publish %s: inventory item: %w", req.SKU, err)
	}

	offerID := req.OfferID
	if offerID == "" {
		created, err := c.CreateOffer(ctx, c.offerFor(req))
		if err != nil {
			return nil, fmt.Errorf("publish %s: create offer: %w", req.SKU, err)
		}
		offerID = created
	}

	listingID, err := c.PublishOffer(ctx, offerID)
	if err != nil {
		return &PublishResult{OfferID: offerID}, fmt.Errorf("publish %s: publish offer: %w", req.SKU, err)
	}
	return &PublishResult{OfferID: offerID, ListingID: listingID}, nil
}

func (c *Client) offerFor(req PublishRequest) Offer {
	return Offer{
		SKU:                 req.SKU,
		MarketplaceID:       c.config.MarketplaceID,
		Format:              "FIXED_PRICE",
		AvailableQuantity:   req.Quantity,
		CategoryID:          c.config.CategoryID,
		ListingDescription:  req.Description,
		MerchantLocationKey: c.config.MerchantLocationKey,
		PricingSummary: &PricingSummary{
			Price: &Amount{Value: calculator.FormatMoney(req.Price), Currency: c.config.Currency},
		},
		ListingPolicies: &ListingPolicies{
			FulfillmentPolicyID: c.config.FulfillmentPolicyID,
			PaymentPolicyID:     c.config.PaymentPolicyID,
			ReturnPolicyID:      c.config.ReturnPolicyID,
		},
	}
}
