package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jerrynoah96/ajofi/internal/app/validator"
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/reputation"
)

// validatorView is the JSON shape of a validator instance.
func validatorView(v *validator.Validator) map[string]interface{} {
	return map[string]interface{}{
		"id":            v.ID(),
		"owner":         v.Owner(),
		"token":         v.StakedToken(),
		"fee_bps":       v.FeeBps(),
		"stake_balance": v.StakeBalance(),
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps protocol errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownToken),
		errors.Is(err, domain.ErrUnknownPurse),
		errors.Is(err, domain.ErrUnknownValidator),
		errors.Is(err, domain.ErrNoStake):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStakeTimelock),
		errors.Is(err, domain.ErrDelayNotElapsed):
		return http.StatusTooEarly
	default:
		return http.StatusConflict
	}
}

func fail(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// ─── Token Handlers ─────────────────────────────────────────────────────────

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": s.registry.ListWhitelisted(),
	})
}

func (s *Server) handleSetWhitelist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string `json:"caller"`
		Token   string `json:"token"`
		Allowed bool   `json:"allowed"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.registry.SetWhitelist(req.Caller, req.Token, req.Allowed); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": req.Token, "allowed": req.Allowed})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token   string `json:"token"`
		Account string `json:"account"`
		Amount  int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	s.bank.Mint(req.Token, req.Account, req.Amount)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": s.bank.BalanceOf(req.Token, req.Account),
	})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account,
		"balance": s.bank.BalanceOf(token, account),
	})
}

// ─── Credit Handlers ────────────────────────────────────────────────────────

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User   string `json:"user"`
		Token  string `json:"token"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.system.Stake(req.User, req.Token, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": s.system.Balance(req.User)})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User   string `json:"user"`
		Token  string `json:"token"`
		Amount int64  `json:"amount"` // 0 withdraws everything
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.system.Unstake(req.User, req.Token, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": s.system.Balance(req.User)})
}

func (s *Server) handleAssignCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		User   string `json:"user"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.system.AssignCredits(req.Caller, req.User, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": s.system.Balance(req.User)})
}

func (s *Server) handleReduceCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		User   string `json:"user"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.system.ReduceCredits(req.Caller, req.User, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": s.system.Balance(req.User)})
}

func (s *Server) handleCreditBalance(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	resp := map[string]interface{}{
		"user":    user,
		"balance": s.system.Balance(user),
	}
	if v, ok := s.system.UserValidator(user); ok {
		resp["validator"] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger history requires persistence")
		return
	}
	user := chi.URLParam(r, "user")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.db.LedgerEntries(user, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ─── Validator Handlers ─────────────────────────────────────────────────────

func (s *Server) handleListValidators(w http.ResponseWriter, r *http.Request) {
	vs := s.validators.ActiveValidators()
	out := make([]map[string]interface{}, 0, len(vs))
	for _, v := range vs {
		out = append(out, validatorView(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"validators": out})
}

func (s *Server) handleCreateValidator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Operator    string `json:"operator"`
		FeeBps      int64  `json:"fee_bps"`
		Token       string `json:"token"`
		StakeAmount int64  `json:"stake_amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.validators.CreateValidator(req.Operator, req.FeeBps, req.Token, req.StakeAmount)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, validatorView(v))
}

func (s *Server) handleUpdateValidatorConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller         string `json:"caller"`
		MaxFeeBps      int64  `json:"max_fee_bps"`
		MinStakeAmount int64  `json:"min_stake_amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := validator.FactoryConfig{MaxFeeBps: req.MaxFeeBps, MinStakeAmount: req.MinStakeAmount}
	if err := s.validators.UpdateConfig(req.Caller, cfg); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"max_fee_bps":      req.MaxFeeBps,
		"min_stake_amount": req.MinStakeAmount,
	})
}

func (s *Server) validatorByID(w http.ResponseWriter, r *http.Request) (*validator.Validator, bool) {
	v, ok := s.validators.ValidatorByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownValidator.Error())
	}
	return v, ok
}

func (s *Server) handleGetValidator(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validatorView(v))
}

func (s *Server) handleVouch(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	var req struct {
		Caller string `json:"caller"`
		User   string `json:"user"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := v.ValidateUser(req.Caller, req.User, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    req.User,
		"balance": s.system.Balance(req.User),
	})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	var req struct {
		Caller string `json:"caller"`
		User   string `json:"user"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := v.InvalidateUser(req.Caller, req.User); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": req.User})
}

func (s *Server) handleAddStake(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	var req struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := v.AddStake(req.Caller, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stake_balance": v.StakeBalance()})
}

func (s *Server) handleWithdrawStake(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	var req struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := v.WithdrawStake(req.Caller, req.Amount); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stake_balance": v.StakeBalance()})
}

func (s *Server) handleDefaultHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"validator": id,
		"defaults":  s.system.DefaultHistory(id),
	})
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	v, ok := s.validatorByID(w, r)
	if !ok {
		return
	}
	var defaulted int64
	for _, rec := range s.system.DefaultHistory(v.ID()) {
		defaulted += rec.Amount
	}
	snap := reputation.Snapshot{
		VouchedAmount: v.Exposure(),
		DefaultTotal:  defaulted,
		StakeBalance:  v.StakeBalance(),
		ActiveSince:   v.CreatedAt(),
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"validator": v.ID(),
		"snapshot":  snap,
		"score":     reputation.Evaluate(snap, time.Now()),
	})
}

// ─── Purse Handlers ─────────────────────────────────────────────────────────

func (s *Server) handleListPurses(w http.ResponseWriter, r *http.Request) {
	ps := s.purses.List()
	out := make([]domain.PurseRecord, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Record())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"purses": out})
}

func (s *Server) handleCreatePurse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token              string `json:"token"`
		ContributionAmount int64  `json:"contribution_amount"`
		MaxMembers         int    `json:"max_members"`
		RoundIntervalSecs  int64  `json:"round_interval_secs"`
		MaxDelaySecs       int64  `json:"max_delay_secs"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.purses.CreatePurse(domain.PurseConfig{
		Token:              req.Token,
		ContributionAmount: req.ContributionAmount,
		MaxMembers:         req.MaxMembers,
		RoundInterval:      time.Duration(req.RoundIntervalSecs) * time.Second,
		MaxDelay:           time.Duration(req.MaxDelaySecs) * time.Second,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Record())
}

func (s *Server) handleGetPurse(w http.ResponseWriter, r *http.Request) {
	p, ok := s.purses.Purse(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownPurse.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"purse":   p.Record(),
		"members": p.Members(),
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	p, ok := s.purses.Purse(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownPurse.Error())
		return
	}
	var req struct {
		User      string `json:"user"`
		Position  int    `json:"position"`
		Validator string `json:"validator"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Join(req.User, req.Position, req.Validator); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Record())
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	p, ok := s.purses.Purse(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownPurse.Error())
		return
	}
	var req struct {
		User string `json:"user"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Contribute(req.User); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Record())
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	p, ok := s.purses.Purse(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownPurse.Error())
		return
	}
	report, err := p.ResolveRound()
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.purses.Purse(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownPurse.Error())
		return
	}
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Terminate(req.Caller); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Record())
}
