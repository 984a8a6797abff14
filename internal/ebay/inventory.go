package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetInventoryItems retrieves one page of inventory items
func (c *Client) GetInventoryItems(ctx context.Context, limit, offset int) (*InventoryItemsResponse, error) {
	path := fmt.Sprintf("/sell/inventory/v1/inventory_item?limit=%d&offset=%d", limit, offset)

	var result InventoryItemsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOffers retrieves one page of offers, optionally filtered by SKU
func (c *Client) GetOffers(ctx context.Context, sku string, limit, offset int) (*OffersResponse, error) {
	path := fmt.Sprintf("/sell/inventory/v1/offer?limit=%d&offset=%d", limit, offset)
	if sku != "" {
		path += "&sku=" + url.QueryEscape(sku)
	}

	var result OffersResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateOrReplaceInventoryItem upserts the inventory item keyed by its SKU
func (c *Client) CreateOrReplaceInventoryItem(ctx context.Context, item InventoryItem) error {
	if item.SKU == "" {
		return fmt.Errorf("inventory item sku is required")
	}
	path := "/sell/inventory/v1/inventory_item/" + url.PathEscape(item.SKU)
	return c.doJSON(ctx, http.MethodPut, path, item, nil)
}

// CreateOffer creates an unpublished offer and returns its id
func (c *Client) CreateOffer(ctx context.Context, offer Offer) (string, error) {
	var result createOfferResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sell/inventory/v1/offer", offer, &result); err != nil {
		return "", err
	}
	return result.OfferID, nil
}

// PublishOffer turns an offer into a live listing and returns the listing id
func (c *Client) PublishOffer(ctx context.Context, offerID string) (string, error) {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/publish"

	var result publishOfferResponse
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return "", err
	}
	return result.ListingID, nil
}
