package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Properties: /v1/properties
// ============================================================

const maxMultipartMemory = 32 << 20

func listPropertiesHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/properties")
		defer span.End()

		q := r.URL.Query()
		minPrice, err := queryFloat(r, "min_price")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		maxPrice, err := queryFloat(r, "max_price")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)

		items, err := svc.List(ctx, domain.PropertyFilter{
			PropertyType:    q.Get("property_type"),
			TransactionType: q.Get("transaction_type"),
			Status:          q.Get("status"),
			City:            q.Get("city"),
			AgentID:         q.Get("agent_id"),
			MinPrice:        minPrice,
			MaxPrice:        maxPrice,
			FeaturedOnly:    q.Get("featured") == "true",
			Page:            page,
			PageSize:        pageSize,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Property]{
			Data:     items,
			Total:    len(items),
			Page:     page,
			PageSize: pageSize,
			HasMore:  len(items) == pageSize,
		})
	}
}

func getPropertyHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/properties/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func createPropertyHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/properties")
		defer span.End()

		var req domain.PropertyRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.Create(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func updatePropertyHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/properties/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.PropertyRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.Update(ctx, PrincipalFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deletePropertyHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/properties/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Delete(ctx, PrincipalFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Media uploads (multipart/form-data, field "file")
// ============================================================

func uploadPropertyImageHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/properties/{id}/images")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		file, err := readUpload(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("upload.bytes", len(file.Data)))

		img, err := svc.UploadImage(ctx, PrincipalFromContext(ctx), id, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, img)
	}
}

func setCoverImageHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/properties/{id}/images/{imageId}/cover")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		imageID, err := uuidParam(r, "imageId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.SetCoverImage(ctx, PrincipalFromContext(ctx), id, imageID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "cover image updated", ID: imageID})
	}
}

func uploadPropertyDocumentHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/properties/{id}/documents")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		file, err := readUpload(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			name = file.FileName
		}

		doc, err := svc.UploadDocument(ctx, PrincipalFromContext(ctx), id, name, r.FormValue("document_type"), file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

func documentURLHandler(svc *service.PropertyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/properties/{id}/documents/{docId}/url")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		docID, err := uuidParam(r, "docId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.DocumentURL(ctx, id, docID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// readUpload extracts the "file" part of a multipart request.
func readUpload(r *http.Request) (*domain.FileUpload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "expected a multipart/form-data upload"}
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "file is required"}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxMultipartMemory+1))
	if err != nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "could not read upload"}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &domain.FileUpload{
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
