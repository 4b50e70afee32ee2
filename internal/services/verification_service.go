package services

import (
	"fmt"

	"github.com/google/uuid"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// VerificationService drives the product inspection lifecycle:
// pending → in_progress → {verified | rejected | adjustment_proposed} →
// {confirmed | adjusted}. Side effects on the product record and farmer/agent
// notifications happen on the transitions; there is no cross-step transaction,
// each store mutation is individually atomic.
type VerificationService struct {
	store    *store.Client
	notifier *NotificationService
}

// NewVerificationService creates a new verification service
func NewVerificationService(st *store.Client, notifier *NotificationService) *VerificationService {
	return &VerificationService{store: st, notifier: notifier}
}

// StartVerificationInput is an agent's request to begin inspecting a product.
type StartVerificationInput struct {
	AgentID      string `json:"agent_id" binding:"required"`
	QualityGrade string `json:"quality_grade"`
	Notes        string `json:"notes"`
	NotesBN      string `json:"notes_bn"`
}

// StatusUpdateInput is an agent's submitted findings.
type StatusUpdateInput struct {
	Status           string   `json:"status" binding:"required"`
	QualityGrade     string   `json:"quality_grade"`
	Notes            string   `json:"notes"`
	NotesBN          string   `json:"notes_bn"`
	AdjustedQuantity *float64 `json:"adjusted_quantity"`
	AdjustedPrice    *float64 `json:"adjusted_price"`
	AdjustmentReason string   `json:"adjustment_reason"`
}

// ListVerificationsOptions filters a verification listing.
type ListVerificationsOptions struct {
	Status   string
	AgentID  string
	Page     int
	PageSize int
}

// Start begins inspection of a product. The product must exist and must not
// already be verified. Creates an in_progress verification, re-affirms the
// product's pending_verification status and notifies the assigned agent.
func (s *VerificationService) Start(productID string, input StartVerificationInput) (*models.Verification, error) {
	productRows, _, err := s.store.Select("products", store.Query{
		Filters: []store.Filter{store.Eq("id", productID)},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(productRows) == 0 {
		return nil, apperr.NotFound("পণ্য পাওয়া যায়নি (Product not found)")
	}

	product := models.ProductFromRow(productRows[0])
	if product.Status == models.ProductStatusVerified {
		return nil, apperr.Conflict("পণ্য ইতিমধ্যে যাচাই করা হয়েছে (Product already verified)")
	}

	verification := &models.Verification{
		ID:               utils.ShortID("VRF", uuid.New().String()),
		ProductID:        productID,
		AgentID:          input.AgentID,
		Status:           models.VerificationStatusInProgress,
		OriginalGrade:    input.QualityGrade,
		OriginalQuantity: product.Quantity,
		Notes:            input.Notes,
		NotesBN:          input.NotesBN,
		CreatedAt:        utils.NowISO(),
	}

	_, err = s.store.Insert("verifications", store.Row{
		"id":                verification.ID,
		"product_id":        verification.ProductID,
		"agent_id":          verification.AgentID,
		"status":            string(verification.Status),
		"original_grade":    nullable(verification.OriginalGrade),
		"original_quantity": verification.OriginalQuantity,
		"notes":             nullable(verification.Notes),
		"notes_bn":          nullable(verification.NotesBN),
		"created_at":        verification.CreatedAt,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if _, err := s.store.Update("products",
		[]store.Filter{store.Eq("id", productID)},
		store.Row{"status": string(models.ProductStatusPendingVerification)}); err != nil {
		return nil, apperr.Internal(err)
	}

	productName := product.NameBN
	if productName == "" {
		productName = productID
	}
	s.notifier.Send(
		input.AgentID,
		NotifTypeListingAssigned,
		"New Listing Assignment",
		"নতুন পণ্য যাচাইয়ের দায়িত্ব",
		fmt.Sprintf("You have been assigned to verify product %s", productID),
		fmt.Sprintf("পণ্য %s যাচাই করার দায়িত্ব দেওয়া হয়েছে", productName),
		verification.ID,
		true,
	)

	return verification, nil
}

// UpdateStatus applies an agent's findings to a verification and propagates
// the terminal side effects to the product. There is deliberately no guard
// against updating an already-terminal verification: re-applying the same
// transition re-applies the same product patch.
func (s *VerificationService) UpdateStatus(verificationID string, input StatusUpdateInput) (*models.Verification, error) {
	if !models.ValidVerificationStatus(input.Status) {
		return nil, apperr.BadRequest("অবৈধ যাচাই অবস্থা (Invalid verification status)")
	}

	rows, _, err := s.store.Select("verifications", store.Query{
		Filters: []store.Filter{store.Eq("id", verificationID)},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("যাচাই পাওয়া যায়নি (Verification not found)")
	}

	verification := models.VerificationFromRow(rows[0])
	status := models.VerificationStatus(input.Status)

	patch := store.Row{"status": input.Status}
	if input.QualityGrade != "" {
		patch["verified_grade"] = input.QualityGrade
	}
	if input.Notes != "" {
		patch["notes"] = input.Notes
	}
	if input.NotesBN != "" {
		patch["notes_bn"] = input.NotesBN
	}
	if input.AdjustedQuantity != nil {
		patch["verified_quantity"] = *input.AdjustedQuantity
	}
	if input.AdjustmentReason != "" {
		patch["adjustment_reason"] = input.AdjustmentReason
	}
	if status == models.VerificationStatusVerified {
		patch["verified_at"] = utils.NowISO()
	}

	updatedRows, err := s.store.Update("verifications",
		[]store.Filter{store.Eq("id", verificationID)}, patch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	updated := verification
	if len(updatedRows) > 0 {
		updated = models.VerificationFromRow(updatedRows[0])
	}

	if status.TerminalForProduct() {
		// Partial overwrite: only supplied adjustments reach the product.
		productPatch := store.Row{
			"status":            string(models.ProductStatusVerified),
			"verified_by":       verification.AgentID,
			"verification_date": utils.NowISO(),
		}
		if input.QualityGrade != "" {
			productPatch["quality_grade"] = input.QualityGrade
		}
		if input.AdjustedQuantity != nil {
			productPatch["quantity"] = *input.AdjustedQuantity
		}
		if input.AdjustedPrice != nil {
			productPatch["price_per_unit"] = *input.AdjustedPrice
		}
		if _, err := s.store.Update("products",
			[]store.Filter{store.Eq("id", verification.ProductID)}, productPatch); err != nil {
			return nil, apperr.Internal(err)
		}
	} else if status == models.VerificationStatusRejected {
		// Revert so the product can be re-submitted or re-assigned.
		if _, err := s.store.Update("products",
			[]store.Filter{store.Eq("id", verification.ProductID)},
			store.Row{"status": string(models.ProductStatusPendingVerification)}); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if status == models.VerificationStatusVerified || status == models.VerificationStatusRejected {
		s.notifyFarmer(verification, status)
	}

	return updated, nil
}

// notifyFarmer tells the product's farmer about the verification outcome. The
// farmer is resolved from the verification record when present, otherwise
// from the product's owner reference. Failures are swallowed.
func (s *VerificationService) notifyFarmer(verification *models.Verification, status models.VerificationStatus) {
	farmerID := verification.FarmerID
	if farmerID == "" {
		productRows, _, err := s.store.Select("products", store.Query{
			Filters: []store.Filter{store.Eq("id", verification.ProductID)},
		})
		if err == nil && len(productRows) > 0 {
			farmerID = models.Str(productRows[0], "farmer_id")
		}
	}
	if farmerID == "" {
		return
	}

	statusLabel := "যাচাই সম্পন্ন"
	if status == models.VerificationStatusRejected {
		statusLabel = "প্রত্যাখ্যাত"
	}
	s.notifier.Send(
		farmerID,
		NotifTypeVerificationComplete,
		fmt.Sprintf("Verification %s", status),
		fmt.Sprintf("পণ্য যাচাই: %s", statusLabel),
		fmt.Sprintf("Your product verification has been %s", status),
		fmt.Sprintf("আপনার পণ্যের যাচাই %s হয়েছে", statusLabel),
		verification.ID,
		true,
	)
}

// Get returns a verification with its product attached.
func (s *VerificationService) Get(verificationID string) (*models.Verification, *models.Product, error) {
	rows, _, err := s.store.Select("verifications", store.Query{
		Filters: []store.Filter{store.Eq("id", verificationID)},
	})
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, nil, apperr.NotFound("যাচাই পাওয়া যায়নি (Verification not found)")
	}

	verification := models.VerificationFromRow(rows[0])

	var product *models.Product
	productRows, _, err := s.store.Select("products", store.Query{
		Filters: []store.Filter{store.Eq("id", verification.ProductID)},
	})
	if err == nil && len(productRows) > 0 {
		product = models.ProductFromRow(productRows[0])
	}

	return verification, product, nil
}

// List returns verifications filtered by status and/or agent, enriched with
// product and farmer names.
func (s *VerificationService) List(opts ListVerificationsOptions) ([]*models.Verification, int, error) {
	var filters []store.Filter
	if opts.Status != "" {
		filters = append(filters, store.Eq("status", opts.Status))
	}
	if opts.AgentID != "" {
		filters = append(filters, store.Eq("agent_id", opts.AgentID))
	}

	page, pageSize := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, total, err := s.store.Select("verifications", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	items := make([]*models.Verification, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.VerificationFromRow(r))
	}

	if err := s.enrich(items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// enrich attaches product and farmer names to a page of verifications.
func (s *VerificationService) enrich(items []*models.Verification) error {
	if len(items) == 0 {
		return nil
	}

	productIDSet := map[string]bool{}
	for _, v := range items {
		if v.ProductID != "" {
			productIDSet[v.ProductID] = true
		}
	}
	productIDs := make([]string, 0, len(productIDSet))
	for id := range productIDSet {
		productIDs = append(productIDs, id)
	}

	products := map[string]*models.Product{}
	farmerIDSet := map[string]bool{}
	if len(productIDs) > 0 {
		rows, _, err := s.store.Select("products", store.Query{
			Filters: []store.Filter{store.In("id", productIDs)},
		})
		if err != nil {
			return apperr.Internal(err)
		}
		for _, r := range rows {
			p := models.ProductFromRow(r)
			products[p.ID] = p
			if p.FarmerID != "" {
				farmerIDSet[p.FarmerID] = true
			}
		}
	}

	farmers := map[string]string{}
	if len(farmerIDSet) > 0 {
		farmerIDs := make([]string, 0, len(farmerIDSet))
		for id := range farmerIDSet {
			farmerIDs = append(farmerIDs, id)
		}
		rows, _, err := s.store.Select("users", store.Query{
			Filters: []store.Filter{store.In("id", farmerIDs)},
		})
		if err != nil {
			return apperr.Internal(err)
		}
		for _, r := range rows {
			farmers[models.Str(r, "id")] = models.Str(r, "name")
		}
	}

	for _, v := range items {
		product, ok := products[v.ProductID]
		if !ok {
			continue
		}
		v.ProductNameBN = product.NameBN
		v.ProductNameEN = product.NameEN
		v.ProductUnit = product.Unit
		if v.FarmerID == "" {
			v.FarmerID = product.FarmerID
		}
		v.FarmerName = farmers[v.FarmerID]
	}
	return nil
}

// StatusMessage returns the bilingual confirmation message for a transition.
func StatusMessage(status string) string {
	messages := map[string]string{
		"pending":             "যাচাই মুলতবি আছে (Verification pending)",
		"in_progress":         "যাচাই চলছে (Verification in progress)",
		"verified":            "পণ্য যাচাই সম্পন্ন (Product verified successfully)",
		"rejected":            "পণ্য প্রত্যাখ্যাত হয়েছে (Product rejected)",
		"adjustment_proposed": "সমন্বয় প্রস্তাব করা হয়েছে (Adjustment proposed)",
	}
	if msg, ok := messages[status]; ok {
		return msg
	}
	return "অবস্থা আপডেট হয়েছে (Status updated)"
}
