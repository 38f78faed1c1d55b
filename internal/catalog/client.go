package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// shopifyPageLimit is the largest page the Admin REST API returns.
const shopifyPageLimit = 250

var (
	ErrNotConfigured = errors.New("catalog not configured")
	ErrInvalidID     = errors.New("invalid product ID format")
	ErrNotFound      = errors.New("product not found")
)

// Catalog is the read side of the product catalog used by the handlers.
type Catalog interface {
	Product(ctx context.Context, id string) (*types.Product, error)
	RandomProducts(ctx context.Context, n int) ([]types.Product, error)
}

// Client talks to the Shopify Admin REST API.
type Client struct {
	baseURL     string
	accessToken string
	maxFetch    int
	client      *http.Client
	perm        func(n int) []int
}

func NewClient(cfg config.CatalogConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	base := cfg.BaseURL
	if base == "" && cfg.ShopName != "" {
		base = fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", cfg.ShopName, cfg.APIVersion)
	}
	return &Client{
		baseURL:     strings.TrimRight(base, "/"),
		accessToken: cfg.AccessToken,
		maxFetch:    cfg.MaxFetch,
		client:      client,
		perm:        rand.Perm,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.accessToken != ""
}

// Product fetches one product by its numeric ID.
func (c *Client) Product(ctx context.Context, id string) (*types.Product, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return nil, ErrInvalidID
	}

	var body struct {
		Product *shopifyProduct `json:"product"`
	}
	if err := c.get(ctx, fmt.Sprintf("/products/%d.json", n), nil, &body); err != nil {
		return nil, err
	}
	if body.Product == nil {
		return nil, ErrNotFound
	}
	p := body.Product.toProduct()
	return &p, nil
}

// ListProducts returns up to limit products in catalog order.
func (c *Client) ListProducts(ctx context.Context, limit int) ([]types.Product, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > shopifyPageLimit {
		limit = shopifyPageLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var body struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := c.get(ctx, "/products.json", q, &body); err != nil {
		return nil, err
	}
	out := make([]types.Product, 0, len(body.Products))
	for _, sp := range body.Products {
		out = append(out, sp.toProduct())
	}
	return out, nil
}

// RandomProducts returns n products sampled without replacement from the first
// max_fetch products. When the catalog holds n or fewer, all of them are returned.
func (c *Client) RandomProducts(ctx context.Context, n int) ([]types.Product, error) {
	all, err := c.ListProducts(ctx, c.maxFetch)
	if err != nil {
		return nil, err
	}
	return sample(all, n, c.perm), nil
}

func sample(all []types.Product, n int, perm func(int) []int) []types.Product {
	if n <= 0 || len(all) <= n {
		return all
	}
	idx := perm(len(all))[:n]
	out := make([]types.Product, 0, n)
	for _, i := range idx {
		out = append(out, all[i])
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("shopify API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Handle      string           `json:"handle"`
	Status      string           `json:"status"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	Images      []shopifyImage   `json:"images"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyVariant struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compare_at_price"`
	SKU               string  `json:"sku"`
	InventoryQuantity int     `json:"inventory_quantity"`
	Available         bool    `json:"available"`
}

func (sp shopifyProduct) toProduct() types.Product {
	p := types.Product{
		ID:          types.FlexString(strconv.FormatInt(sp.ID, 10)),
		Title:       sp.Title,
		Handle:      sp.Handle,
		Description: sp.BodyHTML,
		Vendor:      sp.Vendor,
		ProductType: sp.ProductType,
		Status:      sp.Status,
		CreatedAt:   sp.CreatedAt,
		UpdatedAt:   sp.UpdatedAt,
		Images:      make([]string, 0, len(sp.Images)),
	}
	if p.Title == "" {
		p.Title = "No Title"
	}
	if p.Vendor == "" {
		p.Vendor = "Unknown"
	}
	for _, img := range sp.Images {
		if img.Src != "" {
			p.Images = append(p.Images, img.Src)
		}
	}

	stock := 0
	for _, v := range sp.Variants {
		price := v.Price
		if price == "" {
			price = "0.00"
		}
		p.Variants = append(p.Variants, types.Variant{
			ID:                types.FlexString(strconv.FormatInt(v.ID, 10)),
			Title:             v.Title,
			Price:             types.FlexString(price),
			CompareAtPrice:    v.CompareAtPrice,
			SKU:               v.SKU,
			InventoryQuantity: v.InventoryQuantity,
			Available:         v.Available || v.InventoryQuantity > 0,
		})
		stock += v.InventoryQuantity
	}
	if len(p.Variants) > 0 {
		p.Price = p.Variants[0].Price
		p.Stock = types.FlexString(strconv.Itoa(stock))
	}
	return p
}
