package server

import (
	"net/http"
	"strings"

	"salesdw/internal/etl"
	"salesdw/internal/parser/xlsx"
)

// 64 MiB covers multi-year sale exports with room to spare.
const maxUploadBytes = 64 << 20

type loadRequest struct {
	FilePath string `json:"file_path"`
}

func (s *Server) handleETLLoad(w http.ResponseWriter, r *http.Request) {
	var in loadRequest
	if !decodeBody(w, r, &in) {
		return
	}
	if in.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	result, err := s.engine.LoadFile(r.Context(), in.FilePath)
	if err != nil {
		s.internalError(w, err, "etl load")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUploadSales(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing upload field \"file\"")
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xls") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload an Excel file.")
		return
	}

	h, raw, err := xlsx.Read(file, xlsx.Options{HeaderMap: s.engine.CSV.HeaderMap})
	if err != nil {
		s.internalError(w, err, "parse upload")
		return
	}

	rows, err := etl.Normalize(etl.Table{Header: h, Rows: raw})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Process(r.Context(), rows)
	if err != nil {
		s.internalError(w, err, "process upload")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
