package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"salesdw/internal/logging"
	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

// saleInput is the request body for creating or updating a fact. Dimension
// members are referenced by surrogate key; revenue is always recomputed
// from quantity, unit price and discount.
type saleInput struct {
	SaleDate     string          `json:"sale_date,omitempty"`
	ProductID    int64           `json:"product_id"`
	ManagerID    int64           `json:"manager_id"`
	SupplierID   int64           `json:"supplier_id"`
	RegionID     int64           `json:"region_id"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Discount     decimal.Decimal `json:"discount"`
	PaymentType  string          `json:"payment_type,omitempty"`
	SalesChannel string          `json:"sales_channel,omitempty"`
}

func (in saleInput) date() (warehouse.DateDim, error) {
	if in.SaleDate == "" {
		return warehouse.DateParts(time.Now()), nil
	}
	t, err := time.Parse(warehouse.DateKeyLayout, in.SaleDate)
	if err != nil {
		return warehouse.DateDim{}, err
	}
	return warehouse.DateParts(t), nil
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var in saleInput
	if !decodeBody(w, r, &in) {
		return
	}

	d, err := in.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sale_date: "+err.Error())
		return
	}

	ctx := r.Context()
	dateID, err := s.repo.EnsureDate(ctx, d)
	if err != nil {
		s.internalError(w, err, "ensure date")
		return
	}

	maxID, err := s.repo.MaxSaleID(ctx)
	if err != nil {
		s.internalError(w, err, "max sale id")
		return
	}

	sale := &warehouse.FactSale{
		SaleID:       maxID + 1,
		DateID:       dateID,
		ProductID:    in.ProductID,
		ManagerID:    in.ManagerID,
		SupplierID:   in.SupplierID,
		RegionID:     in.RegionID,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Discount:     in.Discount,
		Revenue:      warehouse.DeriveRevenue(in.Quantity, in.UnitPrice, in.Discount),
		PaymentType:  in.PaymentType,
		SalesChannel: in.SalesChannel,
	}
	if err := s.repo.InsertSale(ctx, sale); err != nil {
		s.internalError(w, err, "insert sale")
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	f := storage.SaleFilter{
		Offset: queryInt(r, "skip", 0),
		Limit:  queryInt(r, "limit", 100),
		Search: r.URL.Query().Get("search"),
	}
	sales, err := s.repo.ListSales(r.Context(), f)
	if err != nil {
		s.internalError(w, err, "list sales")
		return
	}
	if sales == nil {
		sales = []warehouse.FactSale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleCountSales(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.CountSales(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.internalError(w, err, "count sales")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	sale, err := s.repo.GetSale(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sale not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "get sale")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	var in saleInput
	if !decodeBody(w, r, &in) {
		return
	}

	ctx := r.Context()
	id := pathID(r)
	sale, err := s.repo.GetSale(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sale not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "get sale")
		return
	}

	// The business key and (unless a new date is given) the calendar day
	// survive updates.
	if in.SaleDate != "" {
		d, err := in.date()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sale_date: "+err.Error())
			return
		}
		dateID, err := s.repo.EnsureDate(ctx, d)
		if err != nil {
			s.internalError(w, err, "ensure date")
			return
		}
		sale.DateID = dateID
	}

	sale.ProductID = in.ProductID
	sale.ManagerID = in.ManagerID
	sale.SupplierID = in.SupplierID
	sale.RegionID = in.RegionID
	sale.Quantity = in.Quantity
	sale.UnitPrice = in.UnitPrice
	sale.Discount = in.Discount
	sale.Revenue = warehouse.DeriveRevenue(in.Quantity, in.UnitPrice, in.Discount)
	sale.PaymentType = in.PaymentType
	sale.SalesChannel = in.SalesChannel

	if err := s.repo.UpdateSale(ctx, sale); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sale not found")
			return
		}
		s.internalError(w, err, "update sale")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	err := s.repo.DeleteSale(r.Context(), pathID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sale not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "delete sale")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Success"})
}

func (s *Server) internalError(w http.ResponseWriter, err error, op string) {
	logging.Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

// pathID reads the {id} route variable. The route pattern restricts it to
// digits, so parse errors cannot happen for matched requests.
func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}
