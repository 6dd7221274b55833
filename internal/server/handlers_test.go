package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdw/internal/etl"
	"salesdw/internal/warehouse"
)

func newTestServer(repo *fakeRepo) *Server {
	return New(repo, &etl.Engine{Repo: repo})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestCreateSaleSynthesizesBusinessKeyAndRevenue(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodPost, "/sales", map[string]any{
		"sale_date":   "2023-12-03",
		"product_id":  1,
		"manager_id":  2,
		"supplier_id": 3,
		"region_id":   4,
		"quantity":    10,
		"unit_price":  "50",
		"discount":    "5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sale warehouse.FactSale
	decodeInto(t, rec, &sale)
	assert.Equal(t, int64(1), sale.SaleID)
	assert.True(t, sale.Revenue.Equal(decimal.RequireFromString("495")))
	assert.NotZero(t, sale.DateID)

	// Next create continues from the current maximum.
	rec = doJSON(t, s, http.MethodPost, "/sales", map[string]any{
		"product_id": 1, "manager_id": 2, "supplier_id": 3, "region_id": 4,
		"quantity": 1, "unit_price": "1", "discount": "0",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeInto(t, rec, &sale)
	assert.Equal(t, int64(2), sale.SaleID)
}

func TestGetSaleNotFound(t *testing.T) {
	s := newTestServer(newFakeRepo())

	rec := doJSON(t, s, http.MethodGet, "/sales/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var e errorBody
	decodeInto(t, rec, &e)
	assert.Equal(t, "Sale not found", e.Detail)
}

func TestUpdateSaleRecalculatesRevenue(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodPost, "/sales", map[string]any{
		"product_id": 1, "manager_id": 2, "supplier_id": 3, "region_id": 4,
		"quantity": 10, "unit_price": "50", "discount": "5",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale warehouse.FactSale
	decodeInto(t, rec, &sale)

	rec = doJSON(t, s, http.MethodPut, "/sales/1", map[string]any{
		"product_id": 1, "manager_id": 2, "supplier_id": 3, "region_id": 4,
		"quantity": 2, "unit_price": "100", "discount": "10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, &sale)
	assert.True(t, sale.Revenue.Equal(decimal.RequireFromString("190")))
	// Business key survives updates.
	assert.Equal(t, int64(1), sale.SaleID)
}

func TestDeleteSale(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	doJSON(t, s, http.MethodPost, "/sales", map[string]any{
		"product_id": 1, "manager_id": 2, "supplier_id": 3, "region_id": 4,
		"quantity": 1, "unit_price": "1", "discount": "0",
	})

	rec := doJSON(t, s, http.MethodDelete, "/sales/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeInto(t, rec, &body)
	assert.Equal(t, "Success", body["message"])

	rec = doJSON(t, s, http.MethodDelete, "/sales/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSalesEmptyIsArray(t *testing.T) {
	s := newTestServer(newFakeRepo())

	rec := doJSON(t, s, http.MethodGet, "/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListDimensionRejectsUnknown(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []warehouse.DimMember{{ID: 1, Name: "North - Oslo"}}
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodGet, "/dims/region", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []warehouse.DimMember
	decodeInto(t, rec, &members)
	assert.Equal(t, "North - Oslo", members[0].Name)

	rec = doJSON(t, s, http.MethodGet, "/dims/warehouse", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingsRejectsUnknownEntity(t *testing.T) {
	s := newTestServer(newFakeRepo())
	rec := doJSON(t, s, http.MethodGet, "/rankings/supplier", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAggregateRejectsInvalidDimension(t *testing.T) {
	s := newTestServer(newFakeRepo())

	rec := doJSON(t, s, http.MethodGet, "/reports/aggregate?dimension1=region&dimension2=nope", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var e errorBody
	decodeInto(t, rec, &e)
	assert.Equal(t, "Invalid dimension", e.Detail)
}

func TestAggregateValidAxes(t *testing.T) {
	repo := newFakeRepo()
	repo.cells = []warehouse.AggregateCell{{D1: "North", D2: "2023", Value: decimal.RequireFromString("495")}}
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodGet, "/reports/aggregate?dimension1=region&dimension2=year", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cells []warehouse.AggregateCell
	decodeInto(t, rec, &cells)
	require.Len(t, cells, 1)
	assert.Equal(t, "North", cells[0].D1)
}

func TestDashboardMetrics(t *testing.T) {
	repo := newFakeRepo()
	repo.dashboard = warehouse.Dashboard{
		TotalRevenue:  decimal.RequireFromString("990"),
		TotalQuantity: 20,
		CountSales:    2,
		AvgCheck:      decimal.RequireFromString("495"),
	}
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodGet, "/dashboard/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	decodeInto(t, rec, &body)
	assert.Contains(t, body, "total_revenue")
	assert.Contains(t, body, "avg_check")
}

func TestUploadRejectsNonExcel(t *testing.T) {
	s := newTestServer(newFakeRepo())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("sale_id\n1\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/sales", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decodeInto(t, rec, &e)
	assert.Equal(t, "Invalid file type. Please upload an Excel file.", e.Detail)
}

func TestUploadProcessesWorkbook(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	f := excelize.NewFile()
	rows := [][]any{
		{"sale_id", "sale_datetime", "region_name", "city", "manager",
			"product_id", "product_name", "category", "supplier_name",
			"quantity", "unit_price", "discount"},
		{1, "2023-12-03", "North", "Oslo", "Dana", 101, "Widget", "Tools",
			"Acme Corp", 10, "50", "5"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var wb bytes.Buffer
	require.NoError(t, f.Write(&wb))
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sales.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(wb.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/sales", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res etl.Result
	decodeInto(t, rec, &res)
	assert.Equal(t, 1, res.RowsProcessed)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Len(t, repo.store.facts, 1)
}

func TestETLLoadRequiresFilePath(t *testing.T) {
	s := newTestServer(newFakeRepo())
	rec := doJSON(t, s, http.MethodPost, "/etl/load", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStagedSynthesizesIDsAndRevenue(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodPost, "/oltp/sales", map[string]any{
		"sale_datetime": "2023-12-03",
		"region_name":   "North",
		"city":          "Oslo",
		"manager":       "Dana",
		"product_name":  "Widget",
		"category":      "Tools",
		"supplier_name": "Acme Corp",
		"quantity":      10,
		"unit_price":    "50",
		"discount":      "5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var staged warehouse.StagedSale
	decodeInto(t, rec, &staged)
	assert.Equal(t, int64(1), staged.SaleID)
	assert.Equal(t, int64(1), staged.ProductID)
	require.NotNil(t, staged.Revenue)
	assert.True(t, staged.Revenue.Equal(decimal.RequireFromString("495")))
	assert.False(t, staged.Transferred)
}

func TestCreateStagedKeepsExplicitIDs(t *testing.T) {
	s := newTestServer(newFakeRepo())

	rec := doJSON(t, s, http.MethodPost, "/oltp/sales", map[string]any{
		"sale_id":       77,
		"product_id":    101,
		"sale_datetime": "2023-12-03",
		"region_name":   "North",
		"city":          "Oslo",
		"manager":       "Dana",
		"product_name":  "Widget",
		"category":      "Tools",
		"supplier_name": "Acme Corp",
		"quantity":      1,
		"unit_price":    "10",
		"discount":      "0",
		"revenue":       "9",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var staged warehouse.StagedSale
	decodeInto(t, rec, &staged)
	assert.Equal(t, int64(77), staged.SaleID)
	assert.Equal(t, int64(101), staged.ProductID)
	assert.True(t, staged.Revenue.Equal(decimal.RequireFromString("9")))
}

func TestTransferEmptySelection(t *testing.T) {
	s := newTestServer(newFakeRepo())

	rec := doJSON(t, s, http.MethodPost, "/oltp/transfer", map[string]any{"ids": []int64{5, 6}})
	require.Equal(t, http.StatusOK, rec.Code)

	var res etl.Result
	decodeInto(t, rec, &res)
	assert.Equal(t, "No records to transfer", res.Message)
	assert.Zero(t, res.RowsInserted)
}

func TestTransferMovesPendingRecords(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	rec := doJSON(t, s, http.MethodPost, "/oltp/sales", map[string]any{
		"sale_datetime": "2023-12-03",
		"region_name":   "North",
		"city":          "Oslo",
		"manager":       "Dana",
		"product_name":  "Widget",
		"category":      "Tools",
		"supplier_name": "Acme Corp",
		"quantity":      10,
		"unit_price":    "50",
		"discount":      "5",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/oltp/transfer", map[string]any{"ids": []int64{1}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res etl.Result
	decodeInto(t, rec, &res)
	assert.Equal(t, 1, res.RowsProcessed)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, []int64{1}, repo.transferred)
	assert.Len(t, repo.store.facts, 1)

	// Re-posting the same ids transfers nothing.
	rec = doJSON(t, s, http.MethodPost, "/oltp/transfer", map[string]any{"ids": []int64{1}})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &res)
	assert.Equal(t, "No records to transfer", res.Message)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(newFakeRepo())

	req := httptest.NewRequest(http.MethodOptions, "/sales", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
