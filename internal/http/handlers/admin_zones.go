package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/pricing"
	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

type zoneView struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Prefix        string          `json:"postcodePrefix"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	MinOrderValue *string         `json:"minOrderValue"`
}

type zoneRequest struct {
	Name          string `json:"name"`
	Prefix        string `json:"postcodePrefix"`
	DeliveryFee   string `json:"deliveryFee"`
	MinOrderValue string `json:"minOrderValue"`
}

func (req zoneRequest) validate() (prefix string, fee decimal.Decimal, minOrder any, details map[string]any) {
	details = map[string]any{}
	prefix = pricing.NormalizePostcode(req.Prefix)
	if prefix == "" {
		details["postcodePrefix"] = "Postcode prefix is required"
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(req.DeliveryFee))
	if err != nil || fee.LessThan(decimal.Zero) {
		details["deliveryFee"] = "Delivery fee must be a non-negative amount"
	}
	if raw := strings.TrimSpace(req.MinOrderValue); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.LessThan(decimal.Zero) {
			details["minOrderValue"] = "Minimum order value must be a non-negative amount"
		} else {
			minOrder = utils.DecimalParam(parsed)
		}
	}
	if len(details) > 0 {
		return "", decimal.Zero, nil, details
	}
	return prefix, fee.Round(2), minOrder, nil
}

func (h *Handler) AdminListZones(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(r.Context(), `
		select id, name, postcode_prefix, delivery_fee, min_order_value
		from delivery_zones
		where tenant_id = $1
		order by postcode_prefix asc
	`, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("zones query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load delivery zones")
		return
	}
	defer rows.Close()

	zones := make([]zoneView, 0)
	for rows.Next() {
		var (
			zone     zoneView
			fee      pgtype.Numeric
			minOrder pgtype.Numeric
		)
		if err := rows.Scan(&zone.ID, &zone.Name, &zone.Prefix, &fee, &minOrder); err != nil {
			h.Logger.Error("zone scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load delivery zones")
			return
		}
		zone.DeliveryFee = utils.NumericToDecimal(fee)
		if minOrder.Valid {
			value := utils.NumericToDecimal(minOrder).StringFixed(2)
			zone.MinOrderValue = &value
		}
		zones = append(zones, zone)
	}

	response.Success(w, zones)
}

func (h *Handler) AdminCreateZone(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	prefix, fee, minOrder, details := req.validate()
	if details != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Delivery zone is invalid", details)
		return
	}

	var id int64
	err := h.DB.QueryRow(r.Context(), `
		insert into delivery_zones (tenant_id, name, postcode_prefix, delivery_fee, min_order_value)
		values ($1, $2, $3, $4, $5)
		returning id
	`, authCtx.TenantID, strings.TrimSpace(req.Name), prefix, utils.DecimalParam(fee), minOrder).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "ZONE_EXISTS", "A zone with this postcode prefix already exists")
			return
		}
		h.Logger.Error("zone insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create delivery zone")
		return
	}

	response.Created(w, map[string]any{"id": id}, "Delivery zone created")
}

func (h *Handler) AdminUpdateZone(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	zoneID, err := urlParamInt64(r, "zoneID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	prefix, fee, minOrder, details := req.validate()
	if details != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Delivery zone is invalid", details)
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update delivery_zones
		set name = $1, postcode_prefix = $2, delivery_fee = $3, min_order_value = $4
		where id = $5 and tenant_id = $6
	`, strings.TrimSpace(req.Name), prefix, utils.DecimalParam(fee), minOrder, zoneID, authCtx.TenantID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "ZONE_EXISTS", "A zone with this postcode prefix already exists")
			return
		}
		h.Logger.Error("zone update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update delivery zone")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "ZONE_NOT_FOUND", "Delivery zone not found")
		return
	}

	response.Success(w, map[string]any{"id": zoneID})
}

func (h *Handler) AdminDeleteZone(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	zoneID, err := urlParamInt64(r, "zoneID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		delete from delivery_zones where id = $1 and tenant_id = $2
	`, zoneID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("zone delete failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete delivery zone")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "ZONE_NOT_FOUND", "Delivery zone not found")
		return
	}

	response.Success(w, map[string]any{"id": zoneID})
}
