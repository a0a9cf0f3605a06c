package enums

// ProductStatus controls catalog visibility. Only published products can be
// added to a cart or checked out.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
	ProductStatusArchived  ProductStatus = "archived"
)

var productStatuses = newValueSet("product status", ProductStatusDraft, ProductStatusPublished, ProductStatusArchived)

func (p ProductStatus) String() string { return string(p) }

func (p ProductStatus) IsValid() bool { return productStatuses.contains(p) }

// Purchasable reports whether the product may be sold.
func (p ProductStatus) Purchasable() bool { return p == ProductStatusPublished }
