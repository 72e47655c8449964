package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

var documentTypes = []string{"", types.DocumentTypeInvoice, types.DocumentTypePurchaseOrder}

// handleNormalize extracts and normalizes one uploaded file (form field "file")
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	docType := strings.TrimSpace(r.FormValue("document_type"))
	if !slices.Contains(documentTypes, docType) {
		err := &ErrValidation{Field: "document_type", Message: "must be invoice or purchase_order"}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	bundle, err := s.extractUpload(r.Context(), r, "file")
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	env, err := pipeline.NormalizeDocument(r.Context(), s.client, bundle, docType, s.opts)
	if err != nil {
		s.log.Error().Err(err).Str("file", bundle.FileName()).Msg("normalization failed")
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, env)
}

// handleCompare normalizes the "po" and "invoice" uploads and compares them
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	po, invoice, err := s.extractPair(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	result, err := pipeline.RunBundles(r.Context(), s.client, po, invoice, s.opts)
	if err != nil {
		s.log.Error().Err(err).Msg("comparison failed")
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleCompareStream is handleCompare with progress events streamed via SSE.
// The final event is "result" on success or "error" otherwise.
func (s *Server) handleCompareStream(w http.ResponseWriter, r *http.Request) {
	po, invoice, err := s.extractPair(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := s.opts
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteStep(event); err != nil {
			s.log.Warn().Err(err).Msg("failed to write SSE event")
		}
	}

	result, err := pipeline.RunBundles(r.Context(), s.client, po, invoice, opts)
	if err != nil {
		s.log.Error().Err(err).Msg("streamed comparison failed")
		sse.WriteError(err)
		return
	}
	if err := sse.WriteResult(result); err != nil {
		s.log.Warn().Err(err).Msg("failed to write SSE result")
	}
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return &http.MaxBytesError{Limit: s.maxUpload}
		}
		return &ErrValidation{Field: "body", Message: "expected multipart/form-data: " + err.Error()}
	}
	return nil
}

func (s *Server) extractPair(w http.ResponseWriter, r *http.Request) (po, invoice extract.Bundle, err error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, nil, err
	}
	if invoice, err = s.extractUpload(r.Context(), r, "invoice"); err != nil {
		return nil, nil, err
	}
	if po, err = s.extractUpload(r.Context(), r, "po"); err != nil {
		return nil, nil, err
	}
	return po, invoice, nil
}

// extractUpload reads the named form file and extracts it
func (s *Server) extractUpload(ctx context.Context, r *http.Request, field string) (extract.Bundle, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, &ErrValidation{Field: field, Message: "file is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", field, err)
	}

	name := uploadName(header, data)
	s.log.Info().
		Str("field", field).
		Str("file", name).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("upload received")

	return extract.FromBytes(ctx, name, data)
}

// uploadName returns the client filename, adding an extension sniffed from the content
// when the name has no supported one.
func uploadName(header *multipart.FileHeader, data []byte) string {
	name := filepath.Base(header.Filename)
	if name == "." || name == "/" {
		name = "upload"
	}
	if slices.Contains(extract.SupportedExtensions, strings.ToLower(filepath.Ext(name))) {
		return name
	}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext := m.Extension(); slices.Contains(extract.SupportedExtensions, ext) {
			return name + ext
		}
	}
	return name
}
