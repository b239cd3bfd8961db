package model

type Product struct {
	BaseModel
	Name            string    `db:"name" json:"name"`
	SKU             string    `db:"sku" json:"sku"`
	Barcode         *string   `db:"barcode" json:"barcode"` // Nullable
	Description     *string   `db:"description" json:"description"`
	CategoryID      string    `db:"category_id" json:"category_id"`
	SupplierID      *string   `db:"supplier_id" json:"supplier_id"` // Nullable
	UnitPrice       float64   `db:"unit_price" json:"unit_price"`
	CostPrice       float64   `db:"cost_price" json:"cost_price"`
	Quantity        int       `db:"quantity" json:"quantity"`
	MinimumQuantity int       `db:"minimum_quantity" json:"minimum_quantity"`
	MaximumQuantity *int      `db:"maximum_quantity" json:"maximum_quantity"` // Nullable
	IsActive        bool      `db:"is_active" json:"is_active"`
	Category        *Category `db:"-" json:"category,omitempty"` // Joined data
	Supplier        *Supplier `db:"-" json:"supplier,omitempty"` // Joined data
}

// CurrentValue is the retail valuation of the on-hand balance.
func (p *Product) CurrentValue() float64 {
	return float64(p.Quantity) * p.UnitPrice
}

// CostValue is the cost valuation of the on-hand balance.
func (p *Product) CostValue() float64 {
	return float64(p.Quantity) * p.CostPrice
}

type Category struct {
	BaseModel
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
}

type Supplier struct {
	BaseModel
	Name         string  `db:"name" json:"name"`
	ContactEmail *string `db:"contact_email" json:"contact_email"`
	Phone        *string `db:"phone" json:"phone"`
}
