package server

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"salesdw/internal/etl"
	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

// stagedInput is the request body for creating or updating a staged sale.
// SaleID and ProductID are optional on create; missing values are
// synthesized as max+1 over the staging table. Revenue is derived from the
// other measures when absent.
type stagedInput struct {
	SaleID          *int64           `json:"sale_id,omitempty"`
	SaleDatetime    string           `json:"sale_datetime"`
	RegionName      string           `json:"region_name"`
	City            string           `json:"city"`
	Manager         string           `json:"manager"`
	ProductID       *int64           `json:"product_id,omitempty"`
	ProductName     string           `json:"product_name"`
	Brand           string           `json:"brand,omitempty"`
	Category        string           `json:"category"`
	SupplierName    string           `json:"supplier_name"`
	SupplierCountry string           `json:"supplier_country,omitempty"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	Discount        decimal.Decimal  `json:"discount"`
	Revenue         *decimal.Decimal `json:"revenue,omitempty"`
	PaymentType     string           `json:"payment_type,omitempty"`
	SalesChannel    string           `json:"sales_channel,omitempty"`
}

func (in stagedInput) revenue() *decimal.Decimal {
	if in.Revenue != nil {
		return in.Revenue
	}
	d := warehouse.DeriveRevenue(in.Quantity, in.UnitPrice, in.Discount)
	return &d
}

func (in stagedInput) apply(s *warehouse.StagedSale) {
	s.SaleDatetime = in.SaleDatetime
	s.RegionName = in.RegionName
	s.City = in.City
	s.Manager = in.Manager
	s.ProductName = in.ProductName
	s.Brand = in.Brand
	s.Category = in.Category
	s.SupplierName = in.SupplierName
	s.SupplierCountry = in.SupplierCountry
	s.Quantity = in.Quantity
	s.UnitPrice = in.UnitPrice
	s.Discount = in.Discount
	s.Revenue = in.revenue()
	s.PaymentType = in.PaymentType
	s.SalesChannel = in.SalesChannel
}

func (s *Server) handleCreateStaged(w http.ResponseWriter, r *http.Request) {
	var in stagedInput
	if !decodeBody(w, r, &in) {
		return
	}

	ctx := r.Context()
	staged := &warehouse.StagedSale{}
	in.apply(staged)

	if in.SaleID != nil {
		staged.SaleID = *in.SaleID
	} else {
		maxID, err := s.repo.MaxStagedSaleID(ctx)
		if err != nil {
			s.internalError(w, err, "max staged sale id")
			return
		}
		staged.SaleID = maxID + 1
	}

	if in.ProductID != nil {
		staged.ProductID = *in.ProductID
	} else {
		maxPID, err := s.repo.MaxStagedProductID(ctx)
		if err != nil {
			s.internalError(w, err, "max staged product id")
			return
		}
		staged.ProductID = maxPID + 1
	}

	if err := s.repo.InsertStaged(ctx, staged); err != nil {
		s.internalError(w, err, "insert staged")
		return
	}
	writeJSON(w, http.StatusCreated, staged)
}

func (s *Server) handleListStaged(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.ListStaged(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 20))
	if err != nil {
		s.internalError(w, err, "list staged")
		return
	}
	if list == nil {
		list = []warehouse.StagedSale{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCountStaged(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.CountStaged(r.Context())
	if err != nil {
		s.internalError(w, err, "count staged")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *Server) handleGetStaged(w http.ResponseWriter, r *http.Request) {
	staged, err := s.repo.GetStaged(r.Context(), pathID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "get staged")
		return
	}
	writeJSON(w, http.StatusOK, staged)
}

func (s *Server) handleUpdateStaged(w http.ResponseWriter, r *http.Request) {
	var in stagedInput
	if !decodeBody(w, r, &in) {
		return
	}

	ctx := r.Context()
	staged, err := s.repo.GetStaged(ctx, pathID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "get staged")
		return
	}

	in.apply(staged)
	if in.SaleID != nil {
		staged.SaleID = *in.SaleID
	}
	if in.ProductID != nil {
		staged.ProductID = *in.ProductID
	}

	if err := s.repo.UpdateStaged(ctx, staged); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Record not found")
			return
		}
		s.internalError(w, err, "update staged")
		return
	}
	writeJSON(w, http.StatusOK, staged)
}

func (s *Server) handleDeleteStaged(w http.ResponseWriter, r *http.Request) {
	err := s.repo.DeleteStaged(r.Context(), pathID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "delete staged")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Success"})
}

type transferRequest struct {
	IDs []int64 `json:"ids"`
}

// handleTransfer moves selected staged records through the full pipeline
// and marks them transferred. Records already transferred (or unknown ids)
// are silently excluded, so re-posting the same ids is a no-op.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in transferRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx := r.Context()
	records, err := s.repo.PendingStaged(ctx, in.IDs)
	if err != nil {
		s.internalError(w, err, "pending staged")
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusOK, etl.Result{Message: "No records to transfer"})
		return
	}

	rows := make([]etl.Row, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		row, err := etl.RowFromStaged(rec)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows = append(rows, row)
		ids = append(ids, rec.ID)
	}

	result, err := s.engine.Process(ctx, rows)
	if err != nil {
		s.internalError(w, err, "transfer")
		return
	}

	if err := s.repo.MarkTransferred(ctx, ids); err != nil {
		s.internalError(w, err, "mark transferred")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
