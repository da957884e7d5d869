package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"perkledger/crypto"
	"perkledger/native/loyalty"
)

func decodeParams(params []json.RawMessage, out interface{}) error {
	if len(params) != 1 {
		return errors.New("expected exactly one parameter object")
	}
	return json.Unmarshal(params[0], out)
}

func parseAccount(field, value string) (crypto.Address, *handlerError) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, invalidParams(fmt.Sprintf("%s: %v", field, err))
	}
	return addr, nil
}

func parseRecord(field, value string) (loyalty.Address, *handlerError) {
	addr, err := loyalty.ParseAddress(value)
	if err != nil {
		return loyalty.Address{}, invalidParams(fmt.Sprintf("%s: %v", field, err))
	}
	return addr, nil
}

// --- JSON views ---

type programView struct {
	Address             string `json:"address"`
	Authority           string `json:"authority"`
	Name                string `json:"name"`
	InterestRateBp      uint32 `json:"interestRateBp"`
	Mint                string `json:"mint"`
	TotalMerchants      uint64 `json:"totalMerchants"`
	TotalCustomers      uint64 `json:"totalCustomers"`
	TotalTokensIssued   uint64 `json:"totalTokensIssued"`
	TotalTokensRedeemed uint64 `json:"totalTokensRedeemed"`
}

func newProgramView(addr loyalty.Address, p *loyalty.LoyaltyProgram) programView {
	return programView{
		Address:             addr.Hex(),
		Authority:           crypto.MustNewAddress(p.Authority[:]).String(),
		Name:                p.Name,
		InterestRateBp:      p.InterestRateBp,
		Mint:                p.Mint.Hex(),
		TotalMerchants:      p.TotalMerchants,
		TotalCustomers:      p.TotalCustomers,
		TotalTokensIssued:   p.TotalTokensIssued,
		TotalTokensRedeemed: p.TotalTokensRedeemed,
	}
}

type merchantView struct {
	Address       string `json:"address"`
	Authority     string `json:"authority"`
	Program       string `json:"program"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Avatar        string `json:"avatar"`
	Description   string `json:"description"`
	RewardRate    uint64 `json:"rewardRate"`
	TotalIssued   uint64 `json:"totalIssued"`
	TotalRedeemed uint64 `json:"totalRedeemed"`
	IsActive      bool   `json:"isActive"`
	CreatedAt     uint64 `json:"createdAt"`
}

func newMerchantView(addr loyalty.Address, m *loyalty.Merchant) merchantView {
	return merchantView{
		Address:       addr.Hex(),
		Authority:     crypto.MustNewAddress(m.Authority[:]).String(),
		Program:       m.Program.Hex(),
		Name:          m.Name,
		Category:      m.Category,
		Avatar:        m.Avatar,
		Description:   m.Description,
		RewardRate:    m.RewardRate,
		TotalIssued:   m.TotalIssued,
		TotalRedeemed: m.TotalRedeemed,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
	}
}

type customerView struct {
	Address          string `json:"address"`
	Wallet           string `json:"wallet"`
	Program          string `json:"program"`
	TotalEarned      uint64 `json:"totalEarned"`
	TotalRedeemed    uint64 `json:"totalRedeemed"`
	Balance          uint64 `json:"balance"`
	TransactionCount uint64 `json:"transactionCount"`
	Tier             string `json:"tier"`
}

func newCustomerView(addr loyalty.Address, c *loyalty.Customer) customerView {
	return customerView{
		Address:          addr.Hex(),
		Wallet:           crypto.MustNewAddress(c.Wallet[:]).String(),
		Program:          c.Program.Hex(),
		TotalEarned:      c.TotalEarned,
		TotalRedeemed:    c.TotalRedeemed,
		Balance:          c.Balance(),
		TransactionCount: c.TransactionCount,
		Tier:             c.Tier.String(),
	}
}

type ruleView struct {
	Merchant    string `json:"merchant"`
	RuleID      uint64 `json:"ruleId"`
	Kind        string `json:"kind"`
	Multiplier  uint64 `json:"multiplier"`
	MinPurchase uint64 `json:"minPurchase"`
	StartTime   uint64 `json:"startTime"`
	EndTime     uint64 `json:"endTime"`
	IsActive    bool   `json:"isActive"`
}

func newRuleView(r *loyalty.RewardRule) ruleView {
	return ruleView{
		Merchant:    r.Merchant.Hex(),
		RuleID:      r.RuleID,
		Kind:        r.Kind.String(),
		Multiplier:  r.Multiplier,
		MinPurchase: r.MinPurchase,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsActive:    r.IsActive,
	}
}

type offerView struct {
	Address           string `json:"address"`
	Merchant          string `json:"merchant"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Icon              string `json:"icon"`
	Cost              uint64 `json:"cost"`
	Kind              string `json:"kind"`
	HasLimit          bool   `json:"hasLimit"`
	QuantityRemaining uint64 `json:"quantityRemaining"`
	ExpiresAt         uint64 `json:"expiresAt"`
	IsActive          bool   `json:"isActive"`
}

func newOfferView(o *loyalty.RedemptionOffer) offerView {
	return offerView{
		Address:           loyalty.DeriveOffer(o.Merchant, o.Name).Hex(),
		Merchant:          o.Merchant.Hex(),
		Name:              o.Name,
		Description:       o.Description,
		Icon:              o.Icon,
		Cost:              o.Cost,
		Kind:              o.Kind.String(),
		HasLimit:          o.HasLimit,
		QuantityRemaining: o.QuantityRemaining,
		ExpiresAt:         o.ExpiresAt,
		IsActive:          o.IsActive,
	}
}

type voucherView struct {
	Address   string `json:"address"`
	Customer  string `json:"customer"`
	Merchant  string `json:"merchant"`
	Offer     string `json:"offer"`
	Code      string `json:"code"`
	Cost      uint64 `json:"cost"`
	CreatedAt uint64 `json:"createdAt"`
	ExpiresAt uint64 `json:"expiresAt"`
	Status    string `json:"status"`
	UsedAt    uint64 `json:"usedAt"`
}

func newVoucherView(addr loyalty.Address, v *loyalty.RedemptionVoucher) voucherView {
	return voucherView{
		Address:   addr.Hex(),
		Customer:  v.Customer.Hex(),
		Merchant:  v.Merchant.Hex(),
		Offer:     v.Offer.Hex(),
		Code:      v.Code,
		Cost:      v.Cost,
		CreatedAt: v.CreatedAt,
		ExpiresAt: v.ExpiresAt,
		Status:    v.Status.String(),
		UsedAt:    v.UsedAt,
	}
}

// --- mutations ---

type initializeProgramParams struct {
	Authority      string `json:"authority"`
	Name           string `json:"name"`
	InterestRateBp uint32 `json:"interestRateBp"`
}

func handleInitializeProgram(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p initializeProgramParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	addr, err := s.ledger.InitializeProgram(authority, p.Name, p.InterestRateBp)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"program": addr.Hex()}, nil
}

type registerMerchantParams struct {
	Authority   string `json:"authority"`
	Program     string `json:"program"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
	RewardRate  uint64 `json:"rewardRate"`
}

func handleRegisterMerchant(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p registerMerchantParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	program, herr := parseRecord("program", p.Program)
	if herr != nil {
		return nil, herr
	}
	addr, err := s.ledger.RegisterMerchant(authority, program, p.Name, p.Category, p.Avatar, p.Description, p.RewardRate)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"merchant": addr.Hex()}, nil
}

type updateMerchantParams struct {
	Authority   string `json:"authority"`
	Merchant    string `json:"merchant"`
	Category    string `json:"category"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
	RewardRate  uint64 `json:"rewardRate"`
}

func handleUpdateMerchant(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p updateMerchantParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.UpdateMerchant(authority, merchant, p.Category, p.Avatar, p.Description, p.RewardRate); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type merchantStatusParams struct {
	Authority string `json:"authority"`
	Merchant  string `json:"merchant"`
	Active    bool   `json:"active"`
}

func handleSetMerchantStatus(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p merchantStatusParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.SetMerchantStatus(authority, merchant, p.Active); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type destroyMerchantParams struct {
	Authority string `json:"authority"`
	Merchant  string `json:"merchant"`
}

func handleDestroyMerchant(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p destroyMerchantParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.DestroyMerchant(authority, merchant); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type registerCustomerParams struct {
	Wallet  string `json:"wallet"`
	Program string `json:"program"`
}

func handleRegisterCustomer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p registerCustomerParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	wallet, herr := parseAccount("wallet", p.Wallet)
	if herr != nil {
		return nil, herr
	}
	program, herr := parseRecord("program", p.Program)
	if herr != nil {
		return nil, herr
	}
	addr, err := s.ledger.RegisterCustomer(wallet, program)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"customer": addr.Hex()}, nil
}

type issueRewardParams struct {
	Authority      string `json:"authority"`
	Merchant       string `json:"merchant"`
	Wallet         string `json:"wallet"`
	PurchaseAmount uint64 `json:"purchaseAmount"`
}

func handleIssueReward(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p issueRewardParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	wallet, herr := parseAccount("wallet", p.Wallet)
	if herr != nil {
		return nil, herr
	}
	issued, err := s.ledger.IssueReward(authority, merchant, wallet, p.PurchaseAmount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]uint64{"issued": issued}, nil
}

type setRewardRuleParams struct {
	Authority   string `json:"authority"`
	Merchant    string `json:"merchant"`
	RuleID      uint64 `json:"ruleId"`
	Kind        string `json:"kind"`
	Multiplier  uint64 `json:"multiplier"`
	MinPurchase uint64 `json:"minPurchase"`
	StartTime   uint64 `json:"startTime"`
	EndTime     uint64 `json:"endTime"`
}

func handleSetRewardRule(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p setRewardRuleParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	kind, ok := loyalty.ParseRuleKind(p.Kind)
	if !ok {
		return nil, invalidParams("unknown rule kind: " + p.Kind)
	}
	addr, err := s.ledger.SetRewardRule(authority, merchant, p.RuleID, kind, p.Multiplier, p.MinPurchase, p.StartTime, p.EndTime)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"rule": addr.Hex()}, nil
}

type ruleRefParams struct {
	Authority string `json:"authority"`
	Merchant  string `json:"merchant"`
	RuleID    uint64 `json:"ruleId"`
}

func handleToggleRewardRule(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p ruleRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.ToggleRewardRule(authority, merchant, p.RuleID); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func handleDeleteRewardRule(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p ruleRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.DeleteRewardRule(authority, merchant, p.RuleID); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type createOfferParams struct {
	Authority     string `json:"authority"`
	Merchant      string `json:"merchant"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Cost          uint64 `json:"cost"`
	Kind          string `json:"kind"`
	QuantityLimit uint64 `json:"quantityLimit"`
	ExpiresAt     uint64 `json:"expiresAt"`
}

func handleCreateOffer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p createOfferParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	kind, ok := loyalty.ParseOfferKind(p.Kind)
	if !ok {
		return nil, invalidParams("unknown offer kind: " + p.Kind)
	}
	addr, err := s.ledger.CreateRedemptionOffer(authority, merchant, p.Name, p.Description, p.Icon, p.Cost, kind, p.QuantityLimit, p.ExpiresAt)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"offer": addr.Hex()}, nil
}

type updateOfferParams struct {
	Authority     string `json:"authority"`
	Offer         string `json:"offer"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Cost          uint64 `json:"cost"`
	QuantityLimit uint64 `json:"quantityLimit"`
	ExpiresAt     uint64 `json:"expiresAt"`
}

func handleUpdateOffer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p updateOfferParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	offer, herr := parseRecord("offer", p.Offer)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.UpdateRedemptionOffer(authority, offer, p.Description, p.Icon, p.Cost, p.QuantityLimit, p.ExpiresAt); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type offerRefParams struct {
	Authority string `json:"authority"`
	Offer     string `json:"offer"`
}

func handleToggleOffer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p offerRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	offer, herr := parseRecord("offer", p.Offer)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.ToggleRedemptionOffer(authority, offer); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func handleDeleteOffer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p offerRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	offer, herr := parseRecord("offer", p.Offer)
	if herr != nil {
		return nil, herr
	}
	if err := s.ledger.DeleteRedemptionOffer(authority, offer); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type redeemParams struct {
	Wallet   string `json:"wallet"`
	Merchant string `json:"merchant"`
	Offer    string `json:"offer"`
	Seed     uint64 `json:"seed"`
}

func handleRedeemRewards(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p redeemParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	wallet, herr := parseAccount("wallet", p.Wallet)
	if herr != nil {
		return nil, herr
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	offer, herr := parseRecord("offer", p.Offer)
	if herr != nil {
		return nil, herr
	}
	addr, err := s.ledger.RedeemRewards(wallet, merchant, offer, p.Seed)
	if err != nil {
		return nil, ledgerError(err)
	}
	voucher, err := s.ledger.GetVoucher(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newVoucherView(addr, voucher), nil
}

type setVoucherStatusParams struct {
	Authority string `json:"authority"`
	Voucher   string `json:"voucher"`
	Status    string `json:"status"`
}

func handleSetVoucherStatus(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p setVoucherStatusParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	voucher, herr := parseRecord("voucher", p.Voucher)
	if herr != nil {
		return nil, herr
	}
	status, ok := loyalty.ParseVoucherStatus(p.Status)
	if !ok {
		return nil, invalidParams("unknown voucher status: " + p.Status)
	}
	if err := s.ledger.SetVoucherStatus(authority, voucher, status); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"ok": true}, nil
}

// --- reads ---

type recordRefParams struct {
	Address string `json:"address"`
}

func handleGetProgram(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	program, err := s.ledger.GetProgram(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newProgramView(addr, program), nil
}

type authorityRefParams struct {
	Authority string `json:"authority"`
}

func handleGetProgramByAuthority(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p authorityRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	authority, herr := parseAccount("authority", p.Authority)
	if herr != nil {
		return nil, herr
	}
	addr, program, err := s.ledger.GetProgramByAuthority(authority)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newProgramView(addr, program), nil
}

func handleGetMerchant(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	merchant, err := s.ledger.GetMerchant(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newMerchantView(addr, merchant), nil
}

func handleGetCustomer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	customer, err := s.ledger.GetCustomer(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newCustomerView(addr, customer), nil
}

func handleTierProgress(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	percent, toNext, err := s.ledger.CustomerTierProgress(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]uint64{"percent": percent, "tokensToNext": toNext}, nil
}

type merchantRefParams struct {
	Merchant string `json:"merchant"`
}

func handleListRewardRules(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p merchantRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	rules, err := s.ledger.ListRewardRules(merchant)
	if err != nil {
		return nil, ledgerError(err)
	}
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, newRuleView(rule))
	}
	return views, nil
}

func handleGetOffer(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	offer, err := s.ledger.GetRedemptionOffer(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newOfferView(offer), nil
}

func handleListOffers(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p merchantRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	merchant, herr := parseRecord("merchant", p.Merchant)
	if herr != nil {
		return nil, herr
	}
	offers, err := s.ledger.ListRedemptionOffers(merchant)
	if err != nil {
		return nil, ledgerError(err)
	}
	views := make([]offerView, 0, len(offers))
	for _, offer := range offers {
		views = append(views, newOfferView(offer))
	}
	return views, nil
}

func handleGetVoucher(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p recordRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	addr, herr := parseRecord("address", p.Address)
	if herr != nil {
		return nil, herr
	}
	voucher, err := s.ledger.GetVoucher(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return newVoucherView(addr, voucher), nil
}

type customerRefParams struct {
	Customer string `json:"customer"`
}

func handleListVouchers(s *Server, params []json.RawMessage) (interface{}, *handlerError) {
	var p customerRefParams
	if err := decodeParams(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	customer, herr := parseRecord("customer", p.Customer)
	if herr != nil {
		return nil, herr
	}
	vouchers, err := s.ledger.ListVouchersByCustomer(customer)
	if err != nil {
		return nil, ledgerError(err)
	}
	views := make([]voucherView, 0, len(vouchers))
	for _, voucher := range vouchers {
		addr := loyalty.DeriveVoucher(voucher.Customer, voucher.Merchant, voucher.Offer, voucher.Seed)
		views = append(views, newVoucherView(addr, voucher))
	}
	return views, nil
}

var methods = map[string]methodHandler{
	"loyalty_initializeProgram":      {mutating: true, fn: handleInitializeProgram},
	"loyalty_registerMerchant":       {mutating: true, fn: handleRegisterMerchant},
	"loyalty_updateMerchant":         {mutating: true, fn: handleUpdateMerchant},
	"loyalty_setMerchantStatus":      {mutating: true, fn: handleSetMerchantStatus},
	"loyalty_destroyMerchant":        {mutating: true, fn: handleDestroyMerchant},
	"loyalty_registerCustomer":       {mutating: true, fn: handleRegisterCustomer},
	"loyalty_issueReward":            {mutating: true, fn: handleIssueReward},
	"loyalty_setRewardRule":          {mutating: true, fn: handleSetRewardRule},
	"loyalty_toggleRewardRule":       {mutating: true, fn: handleToggleRewardRule},
	"loyalty_deleteRewardRule":       {mutating: true, fn: handleDeleteRewardRule},
	"loyalty_createRedemptionOffer":  {mutating: true, fn: handleCreateOffer},
	"loyalty_updateRedemptionOffer":  {mutating: true, fn: handleUpdateOffer},
	"loyalty_toggleRedemptionOffer":  {mutating: true, fn: handleToggleOffer},
	"loyalty_deleteRedemptionOffer":  {mutating: true, fn: handleDeleteOffer},
	"loyalty_redeemRewards":          {mutating: true, fn: handleRedeemRewards},
	"loyalty_setVoucherStatus":       {mutating: true, fn: handleSetVoucherStatus},
	"loyalty_getProgram":             {fn: handleGetProgram},
	"loyalty_getProgramByAuthority":  {fn: handleGetProgramByAuthority},
	"loyalty_getMerchant":            {fn: handleGetMerchant},
	"loyalty_getCustomer":            {fn: handleGetCustomer},
	"loyalty_tierProgress":           {fn: handleTierProgress},
	"loyalty_listRewardRules":        {fn: handleListRewardRules},
	"loyalty_getRedemptionOffer":     {fn: handleGetOffer},
	"loyalty_listRedemptionOffers":   {fn: handleListOffers},
	"loyalty_getVoucher":             {fn: handleGetVoucher},
	"loyalty_listVouchersByCustomer": {fn: handleListVouchers},
}
