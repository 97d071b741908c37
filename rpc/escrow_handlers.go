package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"beautyton/core/types"
	"beautyton/crypto"
	"beautyton/journal"
	"beautyton/native/escrow"
	"beautyton/observability/metrics"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
)

// EscrowNode is the node surface the RPC server depends on.
type EscrowNode interface {
	CreateOrder(orderID uint64, client, master [20]byte, amount, attachedValue *big.Int) (*escrow.Order, error)
	Confirm(orderID uint64, sender [20]byte, wasPresent bool) (*escrow.Order, error)
	GetOrder(orderID uint64) (*escrow.Order, bool, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	Receipts() ([]journal.Receipt, error)
	Receipt(orderID uint64) (journal.Receipt, error)
	Events() []types.Event
}

type escrowCreateOrderParams struct {
	OrderID       uint64 `json:"orderId"`
	Client        string `json:"client"`
	Master        string `json:"master"`
	Amount        string `json:"amount"`
	AttachedValue string `json:"attachedValue"`
}

type escrowConfirmParams struct {
	OrderID    uint64 `json:"orderId"`
	Caller     string `json:"caller"`
	WasPresent bool   `json:"wasPresent"`
}

type escrowOrderIDParams struct {
	OrderID uint64 `json:"orderId"`
}

type escrowBalanceParams struct {
	Address string `json:"address"`
}

type escrowReceiptsParams struct {
	OrderID *uint64 `json:"orderId,omitempty"`
}

type orderJSON struct {
	OrderID            uint64 `json:"orderId"`
	Client             string `json:"client"`
	Master             string `json:"master"`
	Amount             string `json:"amount"`
	ClientConfirmed    bool   `json:"clientConfirmed"`
	MasterConfirmed    bool   `json:"masterConfirmed"`
	ClientClaimsAbsent bool   `json:"clientClaimsAbsent"`
	MasterClaimsAbsent bool   `json:"masterClaimsAbsent"`
	Finalized          bool   `json:"finalized"`
	Status             string `json:"status"`
	CreatedAt          uint64 `json:"createdAt"`
}

func orderToJSON(o *escrow.Order) orderJSON {
	return orderJSON{
		OrderID:            o.ID,
		Client:             crypto.NewAddress(append([]byte(nil), o.Client[:]...)).String(),
		Master:             crypto.NewAddress(append([]byte(nil), o.Master[:]...)).String(),
		Amount:             o.Amount.String(),
		ClientConfirmed:    o.ClientConfirmed,
		MasterConfirmed:    o.MasterConfirmed,
		ClientClaimsAbsent: o.ClientClaimsAbsent,
		MasterClaimsAbsent: o.MasterClaimsAbsent,
		Finalized:          o.Finalized,
		Status:             o.Status().String(),
		CreatedAt:          o.CreatedAt,
	}
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddressParam(value, field string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %v", field, err)
	}
	return addr.Fixed(), nil
}

func parsePositiveBigInt(value, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	if parsed.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive", field)
	}
	return parsed, nil
}

// escrowErrorResponse maps engine errors onto the RPC error taxonomy.
func escrowErrorResponse(w http.ResponseWriter, id interface{}, method string, err error) {
	metrics.Escrow().RPCFailure(method)
	switch {
	case errors.Is(err, escrow.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, id, codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, escrow.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, escrow.ErrOrderExists),
		errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, escrow.ErrAlreadyConfirmed),
		errors.Is(err, escrow.ErrOrderFinalized):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeEscrowInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleEscrowCreateOrder(w http.ResponseWriter, req *RPCRequest) {
	var params escrowCreateOrderParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	client, err := parseAddressParam(params.Client, "client")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	master, err := parseAddressParam(params.Master, "master")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	attached, err := parsePositiveBigInt(params.AttachedValue, "attachedValue")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	order, err := s.node.CreateOrder(params.OrderID, client, master, amount, attached)
	if err != nil {
		escrowErrorResponse(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, orderToJSON(order))
}

func (s *Server) handleEscrowConfirm(w http.ResponseWriter, req *RPCRequest) {
	var params escrowConfirmParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	order, err := s.node.Confirm(params.OrderID, caller, params.WasPresent)
	if err != nil {
		escrowErrorResponse(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, orderToJSON(order))
}

func (s *Server) handleEscrowGetOrder(w http.ResponseWriter, req *RPCRequest) {
	var params escrowOrderIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	order, ok, err := s.node.GetOrder(params.OrderID)
	if err != nil {
		escrowErrorResponse(w, req.ID, req.Method, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeEscrowNotFound, "not_found", fmt.Sprintf("order %d not found", params.OrderID))
		return
	}
	writeResult(w, req.ID, orderToJSON(order))
}

func (s *Server) handleEscrowGetBalance(w http.ResponseWriter, req *RPCRequest) {
	var params escrowBalanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		escrowErrorResponse(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"address": params.Address,
		"balance": account.Balance.String(),
	})
}

func (s *Server) handleEscrowListReceipts(w http.ResponseWriter, req *RPCRequest) {
	params := escrowReceiptsParams{}
	if len(req.Params) > 0 {
		if err := decodeSingleParam(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	if params.OrderID != nil {
		receipt, err := s.node.Receipt(*params.OrderID)
		if err != nil {
			if errors.Is(err, journal.ErrNotFound) {
				writeError(w, http.StatusNotFound, req.ID, codeEscrowNotFound, "not_found", err.Error())
				return
			}
			escrowErrorResponse(w, req.ID, req.Method, err)
			return
		}
		writeResult(w, req.ID, []journal.Receipt{receipt})
		return
	}
	receipts, err := s.node.Receipts()
	if err != nil {
		escrowErrorResponse(w, req.ID, req.Method, err)
		return
	}
	if receipts == nil {
		receipts = []journal.Receipt{}
	}
	writeResult(w, req.ID, receipts)
}

func (s *Server) handleEscrowListEvents(w http.ResponseWriter, req *RPCRequest) {
	events := s.node.Events()
	if events == nil {
		events = []types.Event{}
	}
	writeResult(w, req.ID, events)
}
