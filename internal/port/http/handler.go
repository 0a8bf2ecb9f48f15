package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/bunnyexe1/AUTHENTIX/internal/adapter/storage/minio"
	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/bunnyexe1/AUTHENTIX/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxImageSize = 10 << 20 // 10 MiB

// Handler translates HTTP requests into engine intents and engine errors
// into status codes. No business rules live here.
type Handler struct {
	engine     *service.Engine
	reconciler *service.Reconciler
	images     *minio.ImageStore
	log        logger.Logger
}

func NewHandler(engine *service.Engine, reconciler *service.Reconciler, images *minio.ImageStore, log logger.Logger) *Handler {
	return &Handler{engine: engine, reconciler: reconciler, images: images, log: log}
}

type createListingRequest struct {
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription"`
	ProductCategory    string          `json:"productCategory"`
	SaleType           string          `json:"saleType"`
	Price              decimal.Decimal `json:"price"`
	ImageURLs          []string        `json:"imageUrls"`
	Seller             string          `json:"seller"`
	NFTContract        string          `json:"nftContract,omitempty"`
	TokenID            uint64          `json:"tokenId,omitempty"`
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	intent := entity.ListingIntent{
		Seller:      req.Seller,
		Name:        req.ProductName,
		Description: req.ProductDescription,
		Category:    entity.Category(req.ProductCategory),
		SaleType:    entity.SaleType(req.SaleType),
		ImageURLs:   req.ImageURLs,
		Price:       req.Price,
		ContractRef: req.NFTContract,
		TokenID:     req.TokenID,
	}

	var (
		result *service.ListingResult
		err    error
	)
	if intent.External() {
		result, err = h.engine.List(r.Context(), intent)
	} else {
		result, err = h.engine.CreateAndList(r.Context(), intent)
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"recordId":  result.RecordID,
		"listingId": result.ListingID,
		"message":   "listing confirmed",
	})
}

func (h *Handler) GetListings(w http.ResponseWriter, r *http.Request) {
	records, err := h.reconciler.ActiveListings(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	record, err := h.reconciler.GetListing(r.Context(), listingID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) GetPurchasable(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	purchasable, err := h.reconciler.Purchasable(r.Context(), listingID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"purchasable": purchasable})
}

type purchaseRequest struct {
	Buyer   string          `json:"buyer"`
	Payment decimal.Decimal `json:"payment"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	record, err := h.engine.Buy(r.Context(), req.Buyer, listingID, req.Payment)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type relistRequest struct {
	Owner string          `json:"owner"`
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) Relist(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var req relistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	if err := h.engine.Relist(r.Context(), req.Owner, listingID, req.Price); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "listing relisted"})
}

type redeemRequest struct {
	Caller string `json:"caller"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	if err := h.engine.Redeem(r.Context(), req.Caller, listingID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "listing redeemed"})
}

type deleteRequest struct {
	Seller string `json:"seller"`
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	if err := h.engine.Delete(r.Context(), req.Seller, listingID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "listing deleted"})
}

func (h *Handler) CancelIntent(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed request body")
		return
	}

	if err := h.engine.CancelIntent(r.Context(), req.Seller, recordID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "pending listing cancelled"})
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	records, err := h.reconciler.Collection(r.Context(), wallet)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "image storage is not configured")
		return
	}
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "failed to read image")
		return
	}

	url, err := h.images.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.log.Errorf("Image upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to store image")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"imageUrl": url})
}

func (h *Handler) listingID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "listingId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "listing id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	reason := service.Reason(err)
	status := statusForReason(reason)
	if status == http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
	}
	writeError(w, status, reason, userMessage(err, reason))
}

func statusForReason(reason string) int {
	switch reason {
	case "VALIDATION_FAILED", "WRONG_AMOUNT":
		return http.StatusBadRequest
	case "NOT_OWNER":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_SOLD", "ALREADY_REDEEMED":
		return http.StatusConflict
	case "LEDGER_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error, reason string) string {
	if reason == "INTERNAL" {
		return "internal error"
	}
	if reason == "LEDGER_UNAVAILABLE" {
		return "confirmation pending, retry later"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
