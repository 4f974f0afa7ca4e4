package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Receipt items
// ============================================================

func listReceiptItemsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /receipts/{id}/items")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		items, err := ledger.ListReceiptItems(ctx, UserIDFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, items)
	}
}

func addReceiptItemHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /receipts/{id}/items")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req domain.ItemInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := ledger.AddReceiptItem(ctx, UserIDFromContext(ctx), id, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

func getItemHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /receipts/items/{itemId}")
		defer span.End()

		id, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		item, err := ledger.GetItem(ctx, UserIDFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, item)
	}
}

func updateItemHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /receipts/items/{itemId}")
		defer span.End()

		id, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req domain.ItemInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := ledger.UpdateItem(ctx, UserIDFromContext(ctx), id, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, item)
	}
}

func deleteItemHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /receipts/items/{itemId}")
		defer span.End()

		id, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := ledger.DeleteItem(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// To-buy list
// ============================================================

func listPendingHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /items/pending")
		defer span.End()

		params, err := parseListParams(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, err := ledger.ListPendingItems(ctx, UserIDFromContext(ctx), params)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

func createPendingHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /items/pending")
		defer span.End()

		var req domain.PendingItemCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := ledger.CreatePendingItem(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

func deletePendingHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /items/{id}")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := ledger.DeletePendingItem(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
