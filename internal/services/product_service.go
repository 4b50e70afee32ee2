package services

import (
	"github.com/google/uuid"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// ProductService manages produce listings.
type ProductService struct {
	store    *store.Client
	notifier *NotificationService
}

// NewProductService creates a new product service
func NewProductService(st *store.Client, notifier *NotificationService) *ProductService {
	return &ProductService{store: st, notifier: notifier}
}

// CreateProductInput is a new listing request. New listings always start in
// pending_verification regardless of what the caller sends.
type CreateProductInput struct {
	FarmerID      string         `json:"farmer_id" binding:"required"`
	NameBN        string         `json:"name_bn" binding:"required"`
	NameEN        string         `json:"name_en"`
	Category      string         `json:"category" binding:"required"`
	DescriptionBN string         `json:"description_bn"`
	Quantity      float64        `json:"quantity" binding:"required,gt=0"`
	Unit          string         `json:"unit"`
	QualityGrade  string         `json:"quality_grade" binding:"omitempty,oneof=A B C"`
	PricePerUnit  float64        `json:"price_per_unit" binding:"required,gt=0"`
	Currency      string         `json:"currency"`
	Images        []string       `json:"images"`
	Location      map[string]any `json:"location"`
}

// UpdateProductInput is a partial listing update. Nil pointers leave the
// stored value untouched.
type UpdateProductInput struct {
	NameBN        string         `json:"name_bn"`
	NameEN        string         `json:"name_en"`
	Category      string         `json:"category"`
	DescriptionBN string         `json:"description_bn"`
	Quantity      *float64       `json:"quantity"`
	Unit          string         `json:"unit"`
	QualityGrade  string         `json:"quality_grade" binding:"omitempty,oneof=A B C"`
	PricePerUnit  *float64       `json:"price_per_unit"`
	Status        string         `json:"status"`
	Images        []string       `json:"images"`
	Location      map[string]any `json:"location"`
}

// ListProductsOptions filters the product listing.
type ListProductsOptions struct {
	Category string
	Status   string
	FarmerID string
	Search   string
	Page     int
	PageSize int
}

// Create inserts a new listing for verification.
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	farmers, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("id", input.FarmerID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(farmers) == 0 {
		return nil, apperr.NotFound("কৃষক পাওয়া যায়নি (Farmer not found)")
	}

	if input.Unit == "" {
		input.Unit = "কেজি"
	}
	if input.QualityGrade == "" {
		input.QualityGrade = "A"
	}
	if input.Currency == "" {
		input.Currency = "BDT"
	}

	locationText := ""
	if enc, ok := models.EncodeJSON(input.Location).(string); ok {
		locationText = enc
	}

	product := &models.Product{
		ID:            utils.ShortID("PRD", uuid.New().String()),
		FarmerID:      input.FarmerID,
		NameBN:        input.NameBN,
		NameEN:        input.NameEN,
		Category:      input.Category,
		DescriptionBN: input.DescriptionBN,
		Quantity:      input.Quantity,
		Unit:          input.Unit,
		QualityGrade:  input.QualityGrade,
		PricePerUnit:  input.PricePerUnit,
		Currency:      input.Currency,
		Images:        input.Images,
		Location:      locationText,
		Status:        models.ProductStatusPendingVerification,
		CreatedAt:     utils.NowISO(),
	}

	_, err = s.store.Insert("products", store.Row{
		"id":             product.ID,
		"farmer_id":      product.FarmerID,
		"name_bn":        product.NameBN,
		"name_en":        nullable(product.NameEN),
		"category":       product.Category,
		"description_bn": nullable(product.DescriptionBN),
		"quantity":       product.Quantity,
		"unit":           product.Unit,
		"quality_grade":  product.QualityGrade,
		"price_per_unit": product.PricePerUnit,
		"currency":       product.Currency,
		"images":         models.EncodeJSON(product.Images),
		"location":       nullable(product.Location),
		"status":         string(product.Status),
		"created_at":     product.CreatedAt,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return product, nil
}

// Get returns a listing by id.
func (s *ProductService) Get(productID string) (*models.Product, error) {
	rows, _, err := s.store.Select("products", store.Query{Filters: []store.Filter{
		store.Eq("id", productID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("পণ্য পাওয়া যায়নি (Product not found)")
	}
	return models.ProductFromRow(rows[0]), nil
}

// List returns listings matching the given filters, newest first.
func (s *ProductService) List(opts ListProductsOptions) ([]*models.Product, int, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if opts.Category != "" {
		filters = append(filters, store.Eq("category", opts.Category))
	}
	if opts.Status != "" {
		filters = append(filters, store.Eq("status", opts.Status))
	}
	if opts.FarmerID != "" {
		filters = append(filters, store.Eq("farmer_id", opts.FarmerID))
	}
	if opts.Search != "" {
		filters = append(filters, store.ILike("name_bn", opts.Search))
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	rows, total, err := s.store.Select("products", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (opts.Page - 1) * opts.PageSize,
		Limit:      opts.PageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	products := make([]*models.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, models.ProductFromRow(r))
	}
	return products, total, nil
}

// Update applies a partial update and notifies the farmer and, when the
// listing was already verified, the verifying agent.
func (s *ProductService) Update(productID string, input UpdateProductInput) (*models.Product, error) {
	existing, err := s.Get(productID)
	if err != nil {
		return nil, err
	}

	patch := store.Row{}
	if input.NameBN != "" {
		patch["name_bn"] = input.NameBN
	}
	if input.NameEN != "" {
		patch["name_en"] = input.NameEN
	}
	if input.Category != "" {
		patch["category"] = input.Category
	}
	if input.DescriptionBN != "" {
		patch["description_bn"] = input.DescriptionBN
	}
	if input.Quantity != nil {
		patch["quantity"] = *input.Quantity
	}
	if input.Unit != "" {
		patch["unit"] = input.Unit
	}
	if input.QualityGrade != "" {
		patch["quality_grade"] = input.QualityGrade
	}
	if input.PricePerUnit != nil {
		patch["price_per_unit"] = *input.PricePerUnit
	}
	if input.Status != "" {
		patch["status"] = input.Status
	}
	if input.Images != nil {
		patch["images"] = models.EncodeJSON(input.Images)
	}
	if input.Location != nil {
		patch["location"] = models.EncodeJSON(input.Location)
	}
	if len(patch) == 0 {
		return existing, nil
	}

	updated, err := s.store.Update("products", []store.Filter{store.Eq("id", productID)}, patch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	product := models.ProductFromRow(updated[0])

	name := product.NameBN
	if name == "" {
		name = product.ID
	}
	s.notifier.Send(product.FarmerID, NotifTypeProductUpdated,
		"Listing updated", "তালিকা আপডেট হয়েছে",
		"Your listing "+name+" has been updated",
		"আপনার তালিকা "+name+" আপডেট করা হয়েছে",
		product.ID, false)
	if existing.VerifiedBy != "" && existing.VerifiedBy != product.FarmerID {
		s.notifier.Send(existing.VerifiedBy, NotifTypeProductUpdated,
			"Verified listing changed", "যাচাইকৃত তালিকা পরিবর্তিত হয়েছে",
			"A listing you verified ("+name+") has been updated",
			"আপনার যাচাই করা একটি তালিকা ("+name+") আপডেট করা হয়েছে",
			product.ID, false)
	}

	return product, nil
}

// SoftDelete marks a listing deleted without removing the row.
func (s *ProductService) SoftDelete(productID string) error {
	if _, err := s.Get(productID); err != nil {
		return err
	}
	if _, err := s.store.Update("products",
		[]store.Filter{store.Eq("id", productID)},
		store.Row{"deleted_at": utils.NowISO()}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Restore clears a listing's deletion mark.
func (s *ProductService) Restore(productID string) (*models.Product, error) {
	rows, _, err := s.store.Select("products", store.Query{Filters: []store.Filter{
		store.Eq("id", productID),
		store.NotNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("মুছে ফেলা পণ্য পাওয়া যায়নি (Deleted product not found)")
	}

	updated, err := s.store.Update("products",
		[]store.Filter{store.Eq("id", productID)},
		store.Row{"deleted_at": nil})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return models.ProductFromRow(updated[0]), nil
}
