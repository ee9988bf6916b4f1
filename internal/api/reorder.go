package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"billdesk/m/domain"
)

const (
	settingMinStockLevel = "min_stock_level"
	settingLeadTimeDays  = "lead_time_days"
)

// The settings form posts raw input values, so numbers may arrive as strings.
type reorderSettingsRequest struct {
	MinStockLevel json.Number `json:"min_stock_level"`
	LeadTimeDays  json.Number `json:"lead_time_days"`
}

func (h *Handler) toggleGlobal(w http.ResponseWriter, r *http.Request) {
	var req reorderSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	minStock, err := strconv.Atoi(req.MinStockLevel.String())
	if err != nil || minStock < 0 {
		respondError(w, http.StatusBadRequest, "min_stock_level must be a non-negative integer")
		return
	}
	leadTime, err := strconv.Atoi(req.LeadTimeDays.String())
	if err != nil || leadTime < 0 {
		respondError(w, http.StatusBadRequest, "lead_time_days must be a non-negative integer")
		return
	}

	tx, err := h.db.BeginTxx(r.Context(), nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	for key, value := range map[string]int{settingMinStockLevel: minStock, settingLeadTimeDays: leadTime} {
		_, err := tx.ExecContext(r.Context(), `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, strconv.Itoa(value))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to save settings")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save settings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "updated",
		settingMinStockLevel: minStock,
		settingLeadTimeDays:  leadTime,
	})
}

func (h *Handler) globalSettings(w http.ResponseWriter, r *http.Request) {
	settings := domain.ReorderSettings{}
	for key, dest := range map[string]*int{settingMinStockLevel: &settings.MinStockLevel, settingLeadTimeDays: &settings.LeadTimeDays} {
		var raw string
		err := h.db.GetContext(r.Context(), &raw, `SELECT value FROM settings WHERE key = ?`, key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to load settings")
			return
		}
		*dest, _ = strconv.Atoi(raw)
	}
	respondJSON(w, http.StatusOK, settings)
}
